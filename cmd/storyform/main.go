package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/clipboard"
	"github.com/kitbuilder587/fantasy-tales/internal/config"
	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/proxyclient"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
)

// app живёт одну команду: открывается в PersistentPreRunE, закрывается в run.
type app struct {
	logger *zap.Logger
	store  storage.Backend
	form   *service.StoryForm
	view   *terminalView
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var showErrors bool

	root := &cobra.Command{
		Use:   "storyform",
		Short: "Generate personalized fantasy tales",
		Long: `storyform asks the story server for a tale built from a name, a setting and a creature.
The last two stories are kept in the local store (STORE_TYPE, default sqlite).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd, showErrors)
		},
	}
	root.PersistentFlags().BoolVar(&showErrors, "show-errors", false, "Show a message when generation fails (otherwise it is only logged)")

	root.AddCommand(
		createGenerateCmd(a),
		createListCmd(a),
		createCopyCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, showErrors bool) error {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("✗ "+err.Error()))
		return err
	}

	cfg.Log.Service = "storyform"
	cfg.Log.Stderr = true
	a.logger, err = config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.store, err = storage.Open(cmd.Context(), cfg.Store, a.logger)
	if err != nil {
		a.logger.Error("failed to open store", zap.String("type", cfg.Store.Type), zap.Error(err))
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("✗ cannot open story store"))
		return err
	}

	a.view = &terminalView{out: cmd.OutOrStdout()}
	a.form = service.NewStoryForm(service.StoryFormDeps{
		Generator: proxyclient.New(proxyclient.Config{ServerURL: cfg.ServerURL}, a.logger),
		Store:     a.store,
		Clipboard: clipboard.NewSystem(),
		View:      a.view,
		Logger:    a.logger,
		Config: service.StoryFormConfig{
			SurfaceGenerationErrors: showErrors,
		},
	})
	a.view.form = a.form

	a.form.Mount(cmd.Context())
	return nil
}

func (a *app) close() {
	if a.form != nil {
		a.form.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func createGenerateCmd(a *app) *cobra.Command {
	var name, setting, creature string

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Generate a new story",
		Example: `  storyform generate --name Amara --setting underwater --creature "sea dragon"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for field, value := range map[domain.Field]string{
				domain.FieldName:     name,
				domain.FieldSetting:  setting,
				domain.FieldCreature: creature,
			} {
				if err := a.form.UpdateField(field, value); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Generating..."))
			return a.form.Submit(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Hero name")
	cmd.Flags().StringVarP(&setting, "setting", "s", "", "Where the story happens")
	cmd.Flags().StringVarP(&creature, "creature", "c", "", "Creature that plays a pivotal role")
	return cmd
}

func createListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the stored stories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.view.renderStories()
		},
	}
}

func createCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <n>",
		Short: "Copy story n to the system clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history := a.form.History()
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > len(history) {
				fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render(fmt.Sprintf("! no story %q, have %d", args[0], len(history))))
				return errors.New("story number out of range")
			}

			if err := a.form.Copy(cmd.Context(), history[n-1]); err != nil {
				return err
			}
			a.view.renderStories()
			return nil
		},
	}
}
