package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command. Attribute subcommands
// complete component names; files complete as usual.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for livedot and print it.

  bash        source <(livedot completion bash)
  zsh         livedot completion zsh > "${fpath[1]}/_livedot"
  fish        livedot completion fish > ~/.config/fish/completions/livedot.fish
  powershell  livedot completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(c.Out)
			case "fish":
				return root.GenFishCompletion(c.Out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(c.Out)
			default:
				return root.GenBashCompletionV2(c.Out, true)
			}
		},
	}
}
