package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/Sternrassler/infinite-feed/pkg/viewer"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
)

var (
	viewLogFile   string
	viewSourceURL string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse a feed in the terminal",
	Long: `Open the terminal viewer. Scrolling near the end of the list loads the next
batch; press m to load more manually and q to quit.

Keys: j/k or arrows scroll, PgUp/PgDn page, g/G or Home/End jump.

Examples:
  # Local generator
  feed view

  # Batches from a running "feed serve"
  feed view --source-url http://localhost:8080`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewLogFile, "log-file", "feed-view.log", "log file while the viewer owns the terminal")
	viewCmd.Flags().StringVar(&viewSourceURL, "source-url", "", "fetch batches from this feed server instead of the generator")
}

func runView(cmd *cobra.Command, args []string) error {
	if viewSourceURL != "" {
		cfg.Source.Kind = "http"
		cfg.Source.BaseURL = viewSourceURL
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	ctrl, err := pagination.NewController(b.Fetcher, paginationConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	signals := trigger.NewBroadcaster()
	prox := trigger.NewProximity(ctrl, trigger.Config{ThresholdPixels: cfg.Trigger.ThresholdPixels}, logger)
	if err := prox.Activate(ctx, signals); err != nil {
		return fmt.Errorf("activate trigger: %w", err)
	}
	defer prox.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	if err := ctrl.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize feed: %w", err)
	}

	v := viewer.New(screen, ctrl, signals, viewer.Config{
		RowPixels: cfg.Viewer.RowPixels,
		Title:     "Infinite Scroll",
	}, logger)

	logger.Info().Str("source", b.Name).Msg("Viewer started")
	return v.Run(ctx)
}
