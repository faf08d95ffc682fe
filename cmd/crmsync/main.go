package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jask/crmsync/internal/accounts"
	"github.com/jask/crmsync/internal/config"
	"github.com/jask/crmsync/internal/database"
	"github.com/jask/crmsync/internal/database/repository"
	"github.com/jask/crmsync/internal/extract"
	"github.com/jask/crmsync/internal/match"
	"github.com/jask/crmsync/internal/report"
	"github.com/jask/crmsync/internal/secrets"
	"github.com/jask/crmsync/internal/service"
	"github.com/jask/crmsync/internal/source"
	"github.com/jask/crmsync/internal/target"
	"github.com/jask/crmsync/internal/tui"
)

func main() {
	var (
		accountsFile = flag.String("accounts-file", "", "file with one account folder label per line")
		accountName  = flag.String("account", "", "single account folder label to process")
		batchSize    = flag.Int("batch-size", -1, "accounts per batch (overrides config; 0 = unbounded)")
		startFrom    = flag.Int("start-from", -1, "0-indexed offset to resume from (overrides config)")
		apply        = flag.Bool("apply", false, "after analysis, upload missing files for exactly matched accounts")
		review       = flag.Bool("review", false, "open the review TUI over recorded runs")
		createDoc    = flag.String("create-doc", "", "text of an extracted document; create target accounts for no-match folders from it")
		storeToken   = flag.String("store-token", "", "encrypt and store a source API token, then exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *storeToken != "" {
		if err := secrets.StoreToken("dropbox", *storeToken); err != nil {
			log.Fatalf("store token: %v", err)
		}
		fmt.Println("token stored")
		return
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	runRepo := repository.NewRunRepo(db)
	reportRepo := repository.NewReportRepo(db)

	// cancellation applies between accounts; an in-flight browser call is
	// left to finish or time out on its own terms
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *review {
		p := tea.NewProgram(tui.New(ctx, tui.Repos{Runs: runRepo, Reports: reportRepo}), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.Fatalf("tui: %v", err)
		}
		return
	}

	src := source.NewClient(resolveToken(cfg), cfg.Source.RootFolder)
	// the bridge owns the single authenticated browser session; we only
	// borrow it for the lifetime of this run
	tgt := target.NewBridge(cfg.Bridge.URL)

	folders, err := loadFolders(ctx, cfg, src, *accountsFile, *accountName)
	if err != nil {
		log.Fatalf("account list: %v", err)
	}
	if len(folders) == 0 {
		log.Println("no account folders to process")
		return
	}

	size, offset := cfg.Batch.Size, cfg.Batch.StartFrom
	if *batchSize >= 0 {
		size = *batchSize
	}
	if *startFrom >= 0 {
		offset = *startFrom
	}
	if last, err := runRepo.LastPosition(ctx); err == nil && last >= 0 && *startFrom < 0 && offset == 0 {
		log.Printf("previous runs recorded up to position %d (use -start-from %d to resume)", last, last+1)
	}

	reconciler := &service.ReconcileService{
		Source: src,
		Target: tgt,
		Matcher: &match.Matcher{Policy: match.Policy{
			MinConfidence: cfg.Match.MinConfidence,
			TokenDistance: cfg.Match.TokenDistance,
		}},
		CallTimeout: cfg.Bridge.CallTimeout,
	}

	run := repository.Run{
		ID:            uuid.NewString(),
		AccountsTotal: len(folders),
		BatchSize:     size,
		StartFrom:     offset,
		Status:        "running",
	}
	if err := runRepo.Add(ctx, run); err != nil {
		log.Fatalf("record run: %v", err)
	}

	batch := &service.BatchService{
		Reconciler: reconciler,
		Recorder:   &repository.RunRecorder{Reports: reportRepo, RunID: run.ID},
		Progress: func(position, total int, folder string) {
			log.Printf("[%d/%d] %s", position+1, total, folder)
		},
	}

	reports, batchErr := batch.RunBatch(ctx, folders, size, offset)
	for _, rep := range reports {
		fmt.Println(report.Render(rep))
	}
	fmt.Println(report.Summary(reports))

	status := "done"
	if batchErr != nil {
		status = "aborted"
		log.Printf("batch stopped: %v", batchErr)
	}
	if err := runRepo.Finish(context.Background(), run.ID, status); err != nil {
		log.Printf("warn: finish run: %v", err)
	}

	if *apply && batchErr == nil {
		applyReports(ctx, cfg, src, tgt, reports)
	}
	if *createDoc != "" && batchErr == nil {
		createAccounts(ctx, cfg, tgt, reports, *createDoc)
	}
}

// createAccounts creates a target account for each no-match folder, with
// fields pulled from the extracted document text and the folder identity
// filling whatever the document did not yield. The operator re-runs the batch
// afterwards to pick up a fresh exact match before any uploads.
func createAccounts(ctx context.Context, cfg config.Config, tgt service.TargetStore, reports []service.Report, docPath string) {
	text, err := os.ReadFile(docPath)
	if err != nil {
		log.Fatalf("read document text: %v", err)
	}
	applier := &service.ApplyService{Target: tgt}
	for _, rep := range reports {
		if rep.Status != service.StatusNoMatch {
			continue
		}
		fields := extract.Fields(string(text))
		if fields.LastName == "" {
			fields.LastName = rep.Identity.LastName
		}
		if fields.FirstName == "" {
			fields.FirstName = rep.Identity.FirstName
		}
		if err := applier.CreateAccount(ctx, fields); err != nil {
			log.Printf("create account for %s: %v", rep.Folder, err)
			continue
		}
		log.Printf("created account %s, %s (re-run to reconcile files)", fields.LastName, fields.FirstName)
	}
}

func applyReports(ctx context.Context, cfg config.Config, src service.SourceStore, tgt service.TargetStore, reports []service.Report) {
	applier := &service.ApplyService{
		Source:        src,
		Target:        tgt,
		UploadTimeout: cfg.Batch.UploadTimeout,
		UploadRetries: cfg.Batch.UploadRetries,
	}
	for _, rep := range reports {
		if rep.Status != service.StatusReconciled || len(rep.FilesToAdd) == 0 {
			continue
		}
		res, err := applier.Apply(ctx, rep)
		if err != nil {
			log.Printf("apply %s: %v", rep.Folder, err)
			continue
		}
		log.Printf("apply %s: uploaded %d, failed %d", rep.Folder, len(res.Uploaded), len(res.Failed))
		for _, f := range res.Failed {
			log.Printf("  failed %s: %v", f.Name, f.Err)
		}
	}
}

// loadFolders resolves the ordered account list: a single label, a flat
// file, or a live source-store listing, always filtered by the ignore list.
func loadFolders(ctx context.Context, cfg config.Config, src *source.Client, file, single string) ([]string, error) {
	ignored, err := accounts.ReadIgnored(cfg.Accounts.IgnoreFile)
	if err != nil {
		return nil, err
	}
	var folders []string
	switch {
	case single != "":
		folders = []string{single}
	case file != "":
		folders, err = accounts.ReadFolders(file)
		if err != nil {
			return nil, err
		}
	default:
		folders, err = src.ListFolders(ctx, cfg.Source.RootFolder)
		if err != nil {
			return nil, err
		}
	}
	kept := accounts.Filter(folders, ignored)
	if dropped := len(folders) - len(kept); dropped > 0 {
		log.Printf("ignoring %d folders from the ignore list", dropped)
	}
	return kept, nil
}

func resolveToken(cfg config.Config) string {
	env := cfg.Source.TokenEnv
	if env == "" {
		env = "DROPBOX_TOKEN"
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if t, err := secrets.FetchToken("dropbox"); err == nil {
		return t
	}
	return cfg.Source.Token
}
