package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/pipeline"
	"github.com/mabhi256/jshim/utils"
)

var inspectLibraries []string

var inspectCmd = &cobra.Command{
	Use:               "inspect [class-file]",
	Short:             "Show how one class would be rewritten",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: utils.CompleteFilesByExtension(".class"),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cf, err := classfile.ParseBytes(data)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		rules, err := cfg.Rules()
		if err != nil {
			return fmt.Errorf("invalid rules: %w", err)
		}
		special, err := cfg.SpecialCases()
		if err != nil {
			return fmt.Errorf("invalid special cases: %w", err)
		}

		libraries, err := resolveLibraries(inspectLibraries)
		if err != nil {
			return err
		}
		p, err := pipeline.New(pipeline.Options{Rules: rules, Special: special})
		if err != nil {
			return err
		}

		in := pipeline.Input{
			Path: classfile.EntryPath(cf.Name()),
			Kind: emit.SinkArchive,
			Data: data,
		}
		if err := p.Index(libraries, []pipeline.Input{in}); err != nil {
			return err
		}

		result, err := p.RewriteClass(in)
		if err != nil {
			return err
		}
		return printInspection(cmd.OutOrStdout(), args[0], cf, result)
	},
}

func printInspection(w io.Writer, path string, cf *classfile.ClassFile, result *pipeline.ClassResult) error {
	const keyWidth = 12

	super, _ := cf.SuperName()
	lines := []string{
		utils.TitleStyle.Render(cf.Name()),
		"",
		utils.FormatKeyValue("File", filepath.Base(path), keyWidth),
		utils.FormatKeyValue("Version", fmt.Sprintf("%d.%d", cf.MajorVersion, cf.MinorVersion), keyWidth),
		utils.FormatKeyValue("Superclass", super, keyWidth),
	}
	for _, iface := range cf.InterfaceNames() {
		lines = append(lines, utils.FormatKeyValue("Implements", iface, keyWidth))
	}

	status := utils.StatusUnchanged
	switch {
	case result.Special != "":
		status = utils.StatusSpecial
		lines = append(lines, utils.FormatKeyValue("Override", string(result.Special), keyWidth))
	case result.Member:
		status = utils.StatusMember
	case result.Rewrite.Changed():
		status = utils.StatusRewritten
	}
	lines = append(lines, "", utils.CreateStatusIndicator(status, string(status)))
	fmt.Fprintln(w, utils.BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	refs, err := cf.ReferencedClasses()
	if err != nil {
		return err
	}
	// nil for special cases, which skip member resolution
	var members map[string]string
	if result.Rewrite != nil {
		members = result.Rewrite.Members
	}
	var refLines []string
	for _, ref := range refs {
		label := utils.MutedStyle.Render(ref)
		if _, member := members[ref]; member {
			label = utils.GoodStyle.Render(ref) + utils.MutedStyle.Render(" (member)")
		}
		refLines = append(refLines, "  "+label)
	}
	fmt.Fprintln(w, utils.TitleStyle.Render(fmt.Sprintf("References (%d)", len(refs))))
	for _, line := range refLines {
		fmt.Fprintln(w, line)
	}

	if result.Rewrite != nil {
		var changes []string
		for _, from := range slices.Sorted(maps.Keys(result.Rewrite.Substituted)) {
			changes = append(changes, from+" -> "+result.Rewrite.Substituted[from])
		}
		for _, name := range result.Rewrite.MemberNames() {
			changes = append(changes, name+" -> "+result.Rewrite.Members[name])
		}
		if list := utils.RenderList("Renames", changes, 0); list != "" {
			fmt.Fprintln(w, list)
		}
	}

	artifacts := make([]string, len(result.Artifacts))
	for i, a := range result.Artifacts {
		artifacts[i] = fmt.Sprintf("%s  %s", a.Dest.Path, utils.MutedStyle.Render(a.Class))
	}
	fmt.Fprintln(w, utils.RenderList("Artifacts", artifacts, 0))
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringArrayVarP(&inspectLibraries, "library", "l", nil, "Class directory or jar consulted for superclasses (repeatable)")
	inspectCmd.Flags().StringVarP(&configPath, "config", "c", "", "Rule configuration file (default: nearest jshim.toml)")

	inspectCmd.RegisterFlagCompletionFunc("library", utils.CompleteFilesByExtension(".jar", ".zip", ".apk"))
	inspectCmd.RegisterFlagCompletionFunc("config", utils.CompleteFilesByExtension(".toml"))
}
