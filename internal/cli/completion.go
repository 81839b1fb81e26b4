package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/encode"
	"github.com/matzehuels/stipple/pkg/stipple"
	"github.com/matzehuels/stipple/pkg/units"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stipple.

Completions cover commands, flags, policy and unit names, output formats and
preset names (including those in the user preset file).

Bash:
  $ source <(stipple completion bash)

Zsh:
  $ stipple completion zsh > "${fpath[1]}/_stipple"

Fish:
  $ stipple completion fish > ~/.config/fish/completions/stipple.fish

PowerShell:
  PS> stipple completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// registerValueCompletions wires completion of enumerated flag values.
// Flags missing from cmd are skipped.
func (c *CLI) registerValueCompletions(cmd *cobra.Command) {
	fixed := map[string][]string{
		"policy": policyNames(),
		"unit":   {string(units.Pixel), string(units.Millimeter)},
	}
	for flag, values := range fixed {
		if cmd.Flags().Lookup(flag) != nil {
			_ = cmd.RegisterFlagCompletionFunc(flag, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		}
	}

	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	}
	if cmd.Flags().Lookup("preset") != nil {
		_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			presets, err := loadPresets(c.presetPath(), false)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			out := make([]string, 0, len(presets))
			for _, name := range presetNames(presets) {
				out = append(out, name+"\t"+presets[name].Description)
			}
			return out, cobra.ShellCompDirectiveNoFileComp
		})
	}
}

func policyNames() []string {
	var names []string
	for _, p := range stipple.Policies() {
		names = append(names, string(p))
	}
	return names
}

// completeFormats completes the last element of a comma-separated format
// list, leaving out formats already named.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	used := make(map[string]bool)
	for _, f := range strings.Split(prefix, ",") {
		used[strings.TrimSpace(f)] = true
	}

	var out []string
	for _, f := range encode.Formats() {
		if !used[string(f)] {
			out = append(out, prefix+string(f))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
