package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/patchpilot/codepatch/internal/editor"
	"github.com/patchpilot/codepatch/internal/github"
	"github.com/patchpilot/codepatch/internal/llm"
	"github.com/patchpilot/codepatch/internal/publish"
	"github.com/patchpilot/codepatch/internal/repo"
	"github.com/patchpilot/codepatch/internal/types"
	"github.com/patchpilot/codepatch/pkg/config"
	"github.com/patchpilot/codepatch/pkg/spinner"
)

var version = "dev"

func main() {
	showHelp := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version information")
	configFile := flag.String("config", "config.json", "Path to configuration file")
	repoURL := flag.String("repo", "", "Repository URL to edit")
	request := flag.String("request", "", "Natural-language edit request")
	preview := flag.Bool("preview", false, "Show proposed diffs without applying anything")
	noPublish := flag.Bool("no-publish", false, "Apply edits locally but skip branch/PR creation")
	flag.Parse()

	if *showVersion {
		fmt.Printf("codepatch version %s\n", version)
		return
	}

	fmt.Println("")
	fmt.Println("====================")
	fmt.Println(" CodePatch Pipeline ")
	fmt.Println("====================")
	fmt.Println("")

	if *showHelp {
		fmt.Println("CodePatch - AI-assisted repository editing")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  %s --repo <url> --request <text> [options]\n", os.Args[0])
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Printf("  %s --repo https://github.com/acme/demo --request \"add input validation\"\n", os.Args[0])
		fmt.Printf("  %s --repo ... --request ... --preview     # dry run\n", os.Args[0])
		fmt.Printf("  %s --config custom.json --repo ... --request ...\n", os.Args[0])
		fmt.Println()
		return
	}

	if *repoURL == "" || *request == "" {
		fmt.Fprintln(os.Stderr, "Error: --repo and --request are required (see --help)")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		if *configFile != "config.json" {
			fmt.Fprintf(os.Stderr, "Error: Failed to load config from %s: %v\n", *configFile, err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	if !slices.Contains(llm.SupportedProviders, cfg.LLM.Provider) {
		fmt.Fprintf(os.Stderr, "Error: Unsupported LLM provider: %s\n", cfg.LLM.Provider)
		os.Exit(1)
	}

	provider, err := llm.NewProvider(llm.ProviderConfig{
		Type:        llm.ProviderType(cfg.LLM.Provider),
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create LLM provider: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Using %s API with %s model\n\n", cfg.LLM.Provider, provider.GetModel())

	hosting := github.New(cfg.GitHub.Token)
	if cfg.GitHub.BaseURL != "" {
		hosting, err = github.NewWithBaseURL(cfg.GitHub.Token, cfg.GitHub.BaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid GitHub base URL: %v\n", err)
			os.Exit(1)
		}
	}
	aiEditor := editor.NewAIEditor(provider)
	validator := editor.NewPlanValidator(cfg.Planner.MaxInstructions)
	manager := repo.NewManager(hosting, aiEditor, validator, cfg.Cache.MaxRepositories)
	defer manager.Close()

	if err := run(manager, *repoURL, *request, *preview, *noPublish); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manager *repo.Manager, repoURL, request string, preview, noPublish bool) error {
	ctx := context.Background()

	s := spinner.New("Analyzing repository...")
	s.Start()
	repoCtx, err := manager.Analyze(ctx, repoURL)
	if err != nil {
		s.Fail("analysis failed")
		return err
	}
	s.Succeed(fmt.Sprintf("analyzed %s/%s (%d files, %s)",
		repoCtx.Owner, repoCtx.Name, repoCtx.FileCount, strings.Join(repoCtx.Languages, ", ")))

	s = spinner.New("Generating edit plan...")
	s.Start()
	plan, warnings, err := manager.Plan(repoCtx, request)
	if err != nil {
		s.Fail("planning failed")
		return err
	}
	s.Succeed(fmt.Sprintf("plan ready: %d instructions, %s effort, %.0f%% confidence",
		len(plan.Instructions), plan.Effort, plan.Confidence*100))

	for _, w := range warnings {
		fmt.Printf("  ! %s\n", w)
	}

	if preview {
		return showPreview(manager, repoCtx, plan)
	}

	s = spinner.New("Applying edits...")
	s.Start()
	result := manager.Execute(repoCtx, plan, request)
	if !result.Success {
		s.Fail("edits failed")
		printResult(result)
		return fmt.Errorf("edit batch failed (request %s)", result.RequestID)
	}
	s.Succeed(fmt.Sprintf("applied %d changes", len(result.Changes)))
	printResult(result)

	if noPublish {
		fmt.Println("\nSkipping publication (--no-publish).")
		return nil
	}

	branch := publish.BranchName(request, time.Now().UTC())
	details := publish.NewPRDetails(request, result)

	s = spinner.New("Publishing branch and pull request...")
	s.Start()
	pub, err := manager.Publish(ctx, repoCtx, result, branch, details.Title, details.Body)
	if err != nil {
		s.Fail("publication failed")
		return err
	}
	s.Succeed(fmt.Sprintf("opened PR #%d on branch %s", pub.Number, pub.Branch))
	fmt.Printf("\n%s\n", pub.URL)

	return nil
}

func showPreview(manager *repo.Manager, repoCtx *types.RepositoryContext, plan *types.EditPlan) error {
	previews, err := manager.Preview(repoCtx, plan)
	if err != nil {
		return err
	}

	if len(previews) == 0 {
		fmt.Println("No modify instructions to preview.")
		return nil
	}

	for _, p := range previews {
		fmt.Printf("\n--- %s (+%d -%d) ---\n", p.FilePath, p.Additions, p.Deletions)
		fmt.Println(p.Diff)
	}
	return nil
}

func printResult(result *types.EditResult) {
	for _, change := range result.Changes {
		fmt.Printf("  ✓ %s %s\n", change.ChangeType, change.FilePath)
		if change.Review != nil && len(change.Review.Issues) > 0 {
			for _, issue := range change.Review.Issues {
				fmt.Printf("    ! [%s] %s\n", issue.Severity, issue.Description)
			}
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("  ✕ %s\n", e)
	}
}
