package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/learning"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/rulecheck"
	"github.com/ledgerline/ledgerline/internal/signal"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage versioned categorization rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesPromoteCmd())
	cmd.AddCommand(rulesRollbackCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rule versions for an organization",
		RunE:  runRulesList,
	}
	cmd.Flags().Bool("active", false, "Show only active versions")
	return cmd
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	activeOnly, _ := cmd.Flags().GetBool("active")

	orgID, err := requireOrg()
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	var rules []model.RuleVersion
	if activeOnly {
		rules, err = store.GetActiveRuleVersions(ctx, orgID)
	} else {
		rules, err = store.ListRuleVersions(ctx, orgID)
	}
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	if len(rules) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No rule versions found."))
		return nil
	}

	widths := []int{8, 24, 20, 4, 8, 8}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Rule versions for %s", orgID)))
	fmt.Fprintln(out, cli.TableHeaderStyle.Render(
		cli.RenderRow(widths, "TYPE", "PATTERN", "CATEGORY", "VER", "SOURCE", "STATE")))
	for i := range rules {
		r := &rules[i]
		state := cli.SubtleStyle.Render("inactive")
		if r.Active {
			state = cli.SuccessStyle.Render("active")
		}
		fmt.Fprintln(out, cli.RenderRow(widths,
			string(r.Type), r.Pattern, r.Category,
			fmt.Sprintf("v%d", r.Version), string(r.Source), state))
	}
	return nil
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new manual rule version",
		Long: `Create a manual rule version. If the lineage already has versions the
new one chains onto it with an incremented version number. Manual rules
activate immediately, deactivating any prior active version.`,
		RunE: runRulesAdd,
	}
	cmd.Flags().String("type", "", "Rule type: mcc, vendor, or keyword")
	cmd.Flags().String("pattern", "", "Rule pattern: MCC code, vendor pattern, or keyword")
	cmd.Flags().String("category", "", "Target category slug")
	cmd.Flags().Float64("confidence", 0.9, "Confidence assigned on match")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	ruleType, _ := cmd.Flags().GetString("type")
	pattern, _ := cmd.Flags().GetString("pattern")
	category, _ := cmd.Flags().GetString("category")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	orgID, err := requireOrg()
	if err != nil {
		return err
	}

	switch model.RuleType(ruleType) {
	case model.RuleTypeMCC, model.RuleTypeVendor, model.RuleTypeKeyword:
	default:
		return fmt.Errorf("invalid rule type %q (want mcc, vendor, or keyword)", ruleType)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	svc := learning.NewService(store, learning.DefaultConfig())
	rule, err := svc.CreateRuleVersion(ctx, orgID, model.RuleType(ruleType), pattern, category, confidence, model.RuleSourceManual)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s rule %s v%d (%s), active",
		rule.Type, rule.Pattern, rule.Version, rule.ID)))
	return nil
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Analyze the rule set for conflicts and unsafe patterns",
		Long: `Static analysis of the effective rule set: overlapping vendor patterns,
MCC collisions, intersecting keyword rules, and regexes with pathological
backtracking shapes. Exits nonzero when any error-severity finding exists.`,
		RunE: runRulesValidate,
	}
}

func runRulesValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	orgID, err := requireOrg()
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	rules, err := store.GetActiveRuleVersions(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to load active rules: %w", err)
	}

	report := rulecheck.Analyze(signal.DefaultTables(), rules)
	fmt.Println(renderValidationReport(report))

	if report.HasErrors() {
		return fmt.Errorf("rule validation found errors")
	}
	return nil
}

func renderValidationReport(report rulecheck.Report) string {
	var b strings.Builder

	if len(report.Conflicts) == 0 {
		b.WriteString(cli.FormatSuccess("No conflicts found"))
		b.WriteString("\n\n")
	} else {
		for _, c := range report.Conflicts {
			line := fmt.Sprintf("[%s] %s: %s", c.Kind, strings.Join(c.Keys, ", "), c.Description)
			switch c.Severity {
			case rulecheck.SeverityError:
				b.WriteString(cli.FormatError(line))
			case rulecheck.SeverityWarning:
				b.WriteString(cli.FormatWarning(line))
			default:
				b.WriteString(cli.SubtleStyle.Render(cli.InfoIcon + " " + line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(cli.RenderBox("Resolution order",
		strings.Join(report.Resolution, "\n")))
	return b.String()
}

func rulesPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <rule-version-id>",
		Short: "Activate a rule version",
		Long: `Activate a rule version, deactivating any currently active version in
its lineage. Learned rules must have a conclusive, passing canary test;
promotion is refused otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			if err := svc.PromoteRuleVersion(ctx, args[0]); err != nil {
				return fmt.Errorf("promotion failed: %w", err)
			}
			fmt.Println(cli.FormatSuccess("Promoted " + args[0]))
			return nil
		},
	}
}

func rulesRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <rule-version-id>",
		Short: "Roll back an active rule version to its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			note, _ := cmd.Flags().GetString("note")

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			if err := svc.RollbackRuleVersion(ctx, args[0], note); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			slog.Info("Rolled back rule version", "id", args[0])
			fmt.Println(cli.FormatSuccess("Rolled back " + args[0]))
			return nil
		},
	}
	cmd.Flags().String("note", "", "Reason for the rollback (recorded in the audit log)")
	return cmd
}
