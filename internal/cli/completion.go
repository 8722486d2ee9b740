package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for boothplan.

To load completions:

Bash:
  $ source <(boothplan completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ boothplan completion bash > /etc/bash_completion.d/boothplan
  # macOS:
  $ boothplan completion bash > $(brew --prefix)/etc/bash_completion.d/boothplan

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ boothplan completion zsh > "${fpath[1]}/_boothplan"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ boothplan completion fish | source

  # To load completions for each session, execute once:
  $ boothplan completion fish > ~/.config/fish/completions/boothplan.fish

PowerShell:
  PS> boothplan completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> boothplan completion powershell > boothplan.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// completeFiles limits file completion to the given extensions.
func completeFiles(exts ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}
