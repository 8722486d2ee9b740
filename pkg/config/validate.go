package config

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
)

// Validate checks the whole plan and returns every problem found, combined
// with multierr, under a single INVALID_CONFIG error. Use multierr.Errors on
// the cause to list them.
func (fp *FloorPlan) Validate() error {
	var problems error

	opts := fp.Options()
	optsErr := opts.Validate()
	if optsErr != nil {
		problems = multierr.Append(problems, optsErr)
	}

	if len(fp.Maps) == 0 {
		problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "at least one map is required"))
	}
	maps := make(map[string]alloc.Map, len(fp.Maps))
	for i, m := range fp.AllocMaps() {
		if err := errs.ValidateID("map", m.ID); err != nil {
			problems = multierr.Append(problems, errs.Wrap(errs.ErrCodeInvalidConfig, err, "maps[%d]", i))
			continue
		}
		if _, dup := maps[m.ID]; dup {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "maps[%d]: duplicate map id %q", i, m.ID))
			continue
		}
		if !(m.Scale > 0) {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "map %s: scale must be positive, got %v", m.ID, m.Scale))
		}
		if m.Width < 0 || m.Height < 0 {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "map %s: width and height must not be negative", m.ID))
		}
		maps[m.ID] = m
	}

	if len(fp.Clusters) == 0 {
		problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "at least one cluster is required"))
	}
	names := make(map[string]bool, len(fp.Clusters))
	for i, c := range fp.Clusters {
		if err := errs.ValidateID("cluster", c.Name); err != nil {
			problems = multierr.Append(problems, errs.Wrap(errs.ErrCodeInvalidConfig, err, "clusters[%d]", i))
			continue
		}
		if names[c.Name] {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "clusters[%d]: duplicate cluster name %q", i, c.Name))
			continue
		}
		names[c.Name] = true

		if len(c.Start) != 2 || len(c.End) != 2 {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: start and end must be [x, y] pairs", c.Name))
			continue
		}
		m, ok := maps[c.Map]
		if !ok {
			problems = multierr.Append(problems, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: unknown map %q", c.Name, c.Map))
			continue
		}
		if m.Scale > 0 && optsErr == nil {
			if _, err := alloc.NewCluster(m, c.spec(), opts); err != nil {
				problems = multierr.Append(problems, err)
			}
		}
	}

	if problems == nil {
		return nil
	}
	return errs.Wrap(errs.ErrCodeInvalidConfig, problems, "invalid floor plan")
}

// Problems splits a Validate error into its individual problems.
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Cause != nil {
		return multierr.Errors(e.Cause)
	}
	return multierr.Errors(err)
}
