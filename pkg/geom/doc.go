// Package geom provides the 2D primitives used to place booths on a floor plan.
//
// Coordinates live in a map's output space (pixels of the floor plan image).
// Vector arithmetic is delegated to gonum's spatial/r2 package; this package
// adds the pieces the allocator needs on top of it:
//
//   - [Rotate] turns a vector about the origin
//   - [Rect] is an oriented rectangle (a placed booth)
//   - [Rect.Polygon] renders it to four integer corners in a fixed winding
//   - [Polygon.Centroid] computes the area centroid of a marker polygon
//   - [Round] snaps a point to integer output coordinates
//
// # Winding
//
// [Rect.Polygon] always emits corners in the order bottom-left, bottom-right,
// top-right, top-left, labelled before rotation. Consumers that draw or
// persist markers rely on this order.
//
// # Rounding
//
// Corner coordinates are rounded half to even, so a corner at 12.5 becomes
// 12 and one at 13.5 becomes 14.
package geom
