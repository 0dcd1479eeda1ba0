package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/case-intake/cmd/case-intake/ui"
	"github.com/spherical/case-intake/internal/editor"
)

var (
	editScript string
	editOutput string
)

var editCmd = &cobra.Command{
	Use:   "edit PDF",
	Short: "Apply a scripted list of page edits to a PDF",
	Long: `Edit opens the PDF, applies every operation of a YAML script in order,
and saves the result. Nothing is written when an operation fails.

Script format:

  output: edited.pdf          # optional, default overwrites PDF
  operations:
    - {op: rotate, page: 0, angle: 90}
    - {op: enhance, page: 1}
    - {op: crop_custom, page: 1, rect: [36, 36, 540, 720]}
    - {op: crop_auto, page: 2, margin: 10}
    - {op: reorder, order: [2, 0, 1]}
    - {op: delete, page: 0}
    - {op: annotate, page: 0, kind: highlight, rect: [72, 100, 200, 14]}
    - {op: apply_filter, page: 1, filter: contrast}`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editScript, "script", "s", "", "YAML edit script (required)")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "save to this path instead of the script output")
	editCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	script, err := editor.LoadScript(editScript)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ui.Section("Page Editor")

	session, err := client.OpenEditor(args[0])
	if err != nil {
		return err
	}
	defer session.Close()

	ui.Info("Opened %s (%d pages)", args[0], session.PageCount())

	spin := ui.NewSpinner("editing")
	spin.Start()
	err = session.Run(script, func(i int, st editor.Step) {
		spin.UpdateMessage(fmt.Sprintf("[%d/%d] %s", i+1, len(script.Operations), st.Op))
	})
	spin.Stop()
	if err != nil {
		return err
	}

	target := editOutput
	if target == "" {
		target = script.Output
	}
	saved, err := session.Save(target)
	if err != nil {
		return err
	}

	for _, m := range session.Modifications() {
		ui.Step("%s", m)
	}
	ui.Success("Saved %s", saved)
	return nil
}
