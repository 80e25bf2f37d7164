package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gobogey/adapters/excel"
	"gobogey/adapters/postgres"
	"gobogey/adapters/stats/adjust"
	"gobogey/adapters/stats/runs"
	"gobogey/domain/match"
	"gobogey/internal"
	"gobogey/internal/config"
	"gobogey/internal/detection"
	"gobogey/internal/errors"
	"gobogey/internal/migration"
	"gobogey/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gobogey",
		Short: "Detect bogey pairs in head-to-head match histories",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading .env: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// overrides holds the flags shared by evaluate and serve. Empty strings and
// negative numbers mean "keep the environment value".
type overrides struct {
	file       string
	alpha      float64
	zType      string
	step2      string
	adjust     string
	basis      string
	workers    int
	tournament string
	grandSlam  int
	start      string
	end        string
	player1    string
	player2    string
	logLevel   string
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "Match table (.xlsx or .csv); overrides MATCH_FILE")
	f.Float64Var(&o.alpha, "alpha", -1, "Significance level; overrides ALPHA")
	f.StringVar(&o.zType, "z-type", "", "Z statistic: cc or std; overrides Z_TYPE")
	f.StringVar(&o.step2, "step2", "", "Step 2 mode: two or three; overrides STEP2_MODE")
	f.StringVar(&o.adjust, "adjust", "", "p-value adjustment ("+methodList()+"); overrides P_ADJUST_METHOD")
	f.StringVar(&o.basis, "upset", "", "Upset basis: odds or elo; overrides UPSET_BASIS")
	f.IntVar(&o.workers, "workers", -1, "Parallel pair evaluations; overrides WORKERS")
	f.StringVar(&o.tournament, "tournament", "", "Tournament name or all; overrides TOURNAMENT")
	f.IntVar(&o.grandSlam, "grand-slam", -1, "0 exclude, 1 only, 2 both; overrides GRAND_SLAM")
	f.StringVar(&o.start, "start", "", "First match date YYYY-MM-DD (or min); overrides START_DATE")
	f.StringVar(&o.end, "end", "", "Last match date YYYY-MM-DD (or max); overrides END_DATE")
	f.StringVar(&o.player1, "player1", "", "First player or all; overrides PLAYER_1")
	f.StringVar(&o.player2, "player2", "", "Second player or all; overrides PLAYER_2")
	f.StringVar(&o.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE; overrides LOG_LEVEL")
}

// apply folds the flags into cfg and re-validates it.
func (o *overrides) apply(cfg *config.Config) error {
	d, data := &cfg.Detection, &cfg.Data
	if o.file != "" {
		data.MatchFile = o.file
	}
	if o.alpha >= 0 {
		d.Alpha = o.alpha
	}
	if o.zType != "" {
		z, err := runs.ParseZType(o.zType)
		if err != nil {
			return errors.ConfigInvalid(err.Error())
		}
		d.ZType = z
	}
	if o.step2 != "" {
		d.Step2Mode = strings.ToLower(o.step2)
	}
	if o.adjust != "" {
		m, err := adjust.ParseMethod(o.adjust)
		if err != nil {
			return errors.ConfigInvalid(err.Error())
		}
		d.AdjustMethod = m
	}
	if o.basis != "" {
		b, err := match.ParseUpsetBasis(o.basis)
		if err != nil {
			return errors.ConfigInvalid(err.Error())
		}
		d.UpsetBasis = b
	}
	if o.workers >= 0 {
		d.Workers = o.workers
	}
	if o.tournament != "" {
		data.Tournament = o.tournament
	}
	if o.grandSlam >= 0 {
		data.GrandSlam = o.grandSlam
	}
	if o.start != "" {
		t, err := config.ParseDateBound(o.start)
		if err != nil {
			return errors.ConfigInvalid("--start: " + err.Error())
		}
		data.StartDate = t
	}
	if o.end != "" {
		t, err := config.ParseDateBound(o.end)
		if err != nil {
			return errors.ConfigInvalid("--end: " + err.Error())
		}
		data.EndDate = t
	}
	if o.player1 != "" {
		data.Player1 = o.player1
	}
	if o.player2 != "" {
		data.Player2 = o.player2
	}
	return cfg.Validate()
}

func methodList() string {
	names := make([]string, len(adjust.Methods))
	for i, m := range adjust.Methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func (o *overrides) logger() *internal.Logger {
	if o.logLevel == "" {
		return internal.NewDefaultLogger()
	}
	return internal.NewLogger(internal.ParseLogLevel(o.logLevel))
}

// loadConfig reads the environment and applies the command line on top.
func loadConfig(o *overrides) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEvaluateCmd() *cobra.Command {
	var o overrides
	var output string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the two-step runs test over a match table",
		Long: `Evaluate every candidate pair of a match table, adjust the p-values across
the batch and write one result row per pair.

Players default to all observed identities. Fixing both players evaluates a
single pair and prints its sequences. When DATABASE_URL is set the batch is
also stored for the results API.

Example: gobogey evaluate -f atp_matches.xlsx --step2 three --adjust holm -o bogeys.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Output.ResultFile = output
			}
			return runEvaluate(cmd.Context(), cfg, o.logger())
		},
	}

	o.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Result file (.xlsx or .csv); overrides RESULT_FILE")
	return cmd
}

func newServeCmd() *cobra.Command {
	var o overrides
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results over HTTP",
		Long: `Serve batch results as JSON.

With DATABASE_URL the stored runs are served. Without it the match file is
evaluated once at startup and kept in memory.

Example: gobogey serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg, o.logger())
		},
	}

	o.register(cmd)
	cmd.Flags().StringVar(&port, "port", "", "Listen port; overrides PORT")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the result tables",
		Long: `Apply the schema for stored runs to DATABASE_URL. Steps are idempotent.

Example: DATABASE_URL=postgres://localhost/bogey?sslmode=disable gobogey migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runEvaluate(ctx context.Context, cfg *config.Config, logger *internal.Logger) error {
	batch, err := evaluate(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := excel.NewResultWriter(cfg.Output.ResultFile, logger).Write(batch.Records); err != nil {
		return err
	}
	fmt.Printf("📄 %d results written to %s\n", len(batch.Records), cfg.Output.ResultFile)

	if cfg.Database.Enabled() {
		if err := storeBatch(ctx, cfg, batch); err != nil {
			return err
		}
		fmt.Printf("💾 run %s stored\n", batch.ID)
	}

	if single(cfg) {
		if len(batch.Records) == 0 {
			fmt.Printf("No matches between %s and %s in the selected data\n", cfg.Data.Player1, cfg.Data.Player2)
			return nil
		}
		printPairReport(os.Stdout, batch.Records[0], cfg.Detection.Alpha)
		return nil
	}

	summary, err := detection.Summarize(batch, cfg.Detection.Alpha)
	if err != nil {
		return err
	}
	fmt.Printf("\n📊 RUN %s (%s)\n", batch.ID, batch.Fingerprint.Short())
	fmt.Print(summary.String())
	return nil
}

func storeBatch(ctx context.Context, cfg *config.Config, batch *detection.Batch) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.NewResultRepository(db).SaveBatch(ctx, batch)
}

// evaluate loads the filtered match table and runs the batch.
func evaluate(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*detection.Batch, error) {
	if cfg.Data.MatchFile == "" {
		return nil, errors.ConfigInvalid("no match file: set MATCH_FILE or pass --file")
	}

	filter := excel.Filter{
		Tournament: cfg.Data.Tournament,
		GrandSlam:  excel.GrandSlamMode(cfg.Data.GrandSlam),
		StartDate:  cfg.Data.StartDate,
		EndDate:    cfg.Data.EndDate,
	}
	matches, err := excel.NewMatchReader(cfg.Data.MatchFile, filter, logger).ReadMatches()
	if err != nil {
		return nil, err
	}

	step2, err := detection.ParseStep2Mode(cfg.Detection.Step2Mode)
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	opts := detection.DefaultOptions()
	opts.Alpha = cfg.Detection.Alpha
	opts.ZType = cfg.Detection.ZType
	opts.Step2Mode = step2
	opts.AdjustMethod = cfg.Detection.AdjustMethod
	opts.UpsetBasis = cfg.Detection.UpsetBasis
	opts.Workers = cfg.Detection.Workers

	candidates := detection.Candidates{
		Left:  playerList(cfg.Data.Player1),
		Right: playerList(cfg.Data.Player2),
	}
	return detection.NewEvaluator(opts, logger).Evaluate(ctx, matches, candidates)
}

// playerList maps "all" to every observed identity.
func playerList(name string) []string {
	if name == "" || strings.EqualFold(name, "all") {
		return nil
	}
	return []string{name}
}

func single(cfg *config.Config) bool {
	return playerList(cfg.Data.Player1) != nil && playerList(cfg.Data.Player2) != nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *internal.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store ui.ResultStore
	if cfg.Database.Enabled() {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		store = postgres.NewResultRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, evaluating %s into memory", cfg.Data.MatchFile)
		batch, err := evaluate(ctx, cfg, logger)
		if err != nil {
			return err
		}
		mem := ui.NewMemoryStore()
		if err := mem.SaveBatch(ctx, batch); err != nil {
			return err
		}
		store = mem
	}

	server := ui.NewServer(store, cfg.Server.GinMode, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(":" + cfg.Server.Port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return err
	}
	fmt.Printf("✅ schema %s applied\n", runner.Version())
	return nil
}

// openDatabase connects and makes sure the schema exists.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}
