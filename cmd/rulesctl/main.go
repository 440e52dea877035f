// Command rulesctl is an operator CLI over the Rule Registry, mirroring
// original_source/backend/manage_alert_rules.py's list/create/enable/
// disable/delete commands against the Go Rule Registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yuno/sentinel/internal/config"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/models"
	"github.com/yuno/sentinel/internal/rules"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := eventlog.Connect(ctx, cfg.DBURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to database:", err)
		return 2
	}
	defer pool.Close()

	store := rules.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to ensure schema:", err)
		return 2
	}

	switch args[0] {
	case "list":
		return cmdList(ctx, store)
	case "create":
		return cmdCreate(ctx, store, args[1:])
	case "enable":
		return cmdSetActive(ctx, store, args[1:], "enable")
	case "disable":
		return cmdSetActive(ctx, store, args[1:], "disable")
	case "delete":
		return cmdDelete(ctx, store, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`rulesctl - Alert Rules CLI

USAGE:
    rulesctl <command> [options]

COMMANDS:
    list                        List all rules
    create [options]            Create a rule
        --merchant <id>              optional; omit for a global rule
        --country <code>             optional filter
        --provider <name>            optional filter
        --issuer <name>               optional filter
        --metric <type>               APPROVAL_RATE | ERROR_RATE | DECLINE_RATE | TOTAL_VOLUME
        --operator <op>                <, >, <=, >=
        --threshold <value>
        --min-transactions <n>
        --severity <level>            WARNING | CRITICAL
    enable <rule_id>            Enable a rule
    disable <rule_id>           Disable a rule
    delete <rule_id>            Soft-delete a rule`)
}

func cmdList(ctx context.Context, store *rules.Store) int {
	list, err := store.List(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list failed:", err)
		return 2
	}
	fmt.Printf("%-36s %-16s %-8s %-10s %-14s %-10s %-10s %-8s\n",
		"rule_id", "merchant", "country", "provider", "metric_type", "operator", "threshold", "active")
	for _, r := range list {
		merchant := "GLOBAL"
		if r.MerchantID != nil {
			merchant = *r.MerchantID
		}
		fmt.Printf("%-36s %-16s %-8s %-10s %-14s %-10s %-10.4f %-8v\n",
			r.RuleID, merchant, orAll(r.Country), orAll(r.ProviderID), r.MetricType, r.Operator, r.Threshold, r.Active)
	}
	return 0
}

func orAll(s string) string {
	if s == "" {
		return "ALL"
	}
	return s
}

func cmdCreate(ctx context.Context, store *rules.Store, args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	merchant := fs.String("merchant", "", "merchant ID; omit for a global rule")
	country := fs.String("country", "", "country filter")
	provider := fs.String("provider", "", "provider filter")
	issuer := fs.String("issuer", "", "issuer filter")
	metric := fs.String("metric", "ERROR_RATE", "APPROVAL_RATE | ERROR_RATE | DECLINE_RATE | TOTAL_VOLUME")
	operator := fs.String("operator", ">", "<, >, <=, >=")
	threshold := fs.Float64("threshold", 0.10, "threshold value")
	minTransactions := fs.Int64("min-transactions", 30, "minimum sample size")
	severity := fs.String("severity", "WARNING", "WARNING | CRITICAL")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	req := models.RuleCreateRequest{
		Country:         *country,
		ProviderID:      *provider,
		IssuerName:      *issuer,
		MetricType:      *metric,
		Operator:        *operator,
		Threshold:       *threshold,
		MinTransactions: *minTransactions,
		Severity:        *severity,
	}
	if *merchant != "" {
		req.MerchantID = merchant
	}

	rule, err := store.Create(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create failed:", err)
		return 2
	}
	fmt.Printf("rule created: %s\n", rule.RuleID)
	return 0
}

func cmdSetActive(ctx context.Context, store *rules.Store, args []string, verb string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "missing rule_id")
		return 1
	}
	active := verb == "enable"
	if err := store.SetActive(ctx, args[0], active); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", verb, err)
		return 2
	}
	fmt.Printf("rule %sd\n", verb)
	return 0
}

func cmdDelete(ctx context.Context, store *rules.Store, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "missing rule_id")
		return 1
	}
	if !confirm(fmt.Sprintf("Delete rule %s? [y/N] ", args[0])) {
		fmt.Println("aborted")
		return 0
	}
	if err := store.SoftDelete(ctx, args[0]); err != nil {
		fmt.Fprintln(os.Stderr, "delete failed:", err)
		return 2
	}
	fmt.Println("rule deleted")
	return 0
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	var reply string
	fmt.Scanln(&reply)
	return reply == "y" || reply == "yes"
}
