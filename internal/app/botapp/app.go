package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/somospye/pyebot-sub000/internal/config"
	discordinfra "github.com/somospye/pyebot-sub000/internal/infra/discord"
	"github.com/somospye/pyebot-sub000/internal/jobs/sweep"
	pgrepo "github.com/somospye/pyebot-sub000/internal/repo/postgres"
	redisrepo "github.com/somospye/pyebot-sub000/internal/repo/redis"
	govsvc "github.com/somospye/pyebot-sub000/internal/services/governance"
	"github.com/somospye/pyebot-sub000/internal/services/permissions"
)

const manageRolesAction = "manage_roles"

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	bot      *discordinfra.Bot

	roleRepo   *pgrepo.RoleRepo
	dashboard  *redisrepo.DashboardRepo
	governance *govsvc.Service
	resolver   *permissions.Service
	sweepJob   *sweep.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	roleRepo := pgrepo.NewRoleRepo(pool)
	dashboard := redisrepo.NewDashboardRepo(redisClient)
	sessions := govsvc.NewStore(cfg.Governance.SessionTTL)
	governance := govsvc.NewService(roleRepo, sessions)
	resolver := permissions.NewService(roleRepo)
	sweepJob := sweep.New(sessions, cfg.Governance.SweepInterval, logger)

	var bot *discordinfra.Bot
	if strings.TrimSpace(cfg.Discord.Token) != "" {
		bot, err = discordinfra.NewBot(cfg.Discord.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init discord bot: %w", err)
		}
	} else {
		logger.Warn("DISCORD_TOKEN is empty, interaction listener disabled")
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		redis:      redisClient,
		bot:        bot,
		roleRepo:   roleRepo,
		dashboard:  dashboard,
		governance: governance,
		resolver:   resolver,
		sweepJob:   sweepJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		a.sweepJob.Start(ctx)
		errCh <- nil
	}()

	if a.bot != nil {
		if err := a.bot.RegisterCommands(a.cfg.Discord.AppID, a.cfg.Discord.GuildID); err != nil {
			return fmt.Errorf("register slash commands: %w", err)
		}
		go func() {
			errCh <- a.bot.Listen(ctx, discordinfra.Handlers{
				OnCommand:   a.handleCommand,
				OnComponent: a.handleComponent,
				OnModal:     a.handleModal,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update discordinfra.CommandUpdate) error {
	if a.bot == nil || update.Command != "roles" {
		return nil
	}
	if update.GuildID == "" {
		return a.bot.RespondNotice(update.Interaction, "This command only works inside a guild.")
	}

	fallbackAllowed := update.Permissions&discordgo.PermissionManageRoles != 0
	decision, err := a.resolver.Resolve(ctx, update.GuildID, manageRolesAction, update.MemberRoleIDs, fallbackAllowed)
	if err != nil {
		a.logger.Error("resolve governance permission", zap.Error(err), zap.String("guild_id", update.GuildID))
		return a.bot.RespondNotice(update.Interaction, "Something went wrong, try again later.")
	}
	if !decision.Allowed {
		if decision.Decision == permissions.DecisionDeniedByOverride {
			if obsErr := a.dashboard.ObserveOverrideDenied(ctx, update.GuildID, decision.MatchedRoleKey); obsErr != nil {
				a.logger.Warn("record override denial", zap.Error(obsErr))
			}
		}
		return a.bot.RespondNotice(update.Interaction, "You are not allowed to manage roles here.")
	}

	session, err := a.governance.CreateSession(ctx, update.GuildID, update.UserID)
	if err != nil {
		a.logger.Error("create governance session", zap.Error(err), zap.String("guild_id", update.GuildID))
		return a.bot.RespondNotice(update.Interaction, "Could not open the governance panel.")
	}

	a.logger.Info("governance session opened",
		zap.String("session_id", session.ID),
		zap.String("guild_id", update.GuildID),
		zap.String("moderator_id", update.UserID))

	return a.bot.RespondView(update.Interaction, a.governance.SessionView(session), componentID(session.ID))
}

func (a *App) handleComponent(ctx context.Context, update discordinfra.ComponentUpdate) error {
	if a.bot == nil {
		return nil
	}

	sessionID, action, value, ok := parseCustomID(update.CustomID, "gov")
	if !ok {
		return nil
	}

	// Actions that need typed input open a modal instead of hitting the
	// session machine; the machine sees them on modal submit.
	switch {
	case action == "open_option" && value == "rename":
		return a.bot.OpenModal(update.Interaction, modalID(sessionID, "rename_confirm"), "Rename role", []discordinfra.ModalInput{
			{ID: "label", Label: "New label", Placeholder: "up to 32 characters", Required: true},
		})
	case action == "set_limit":
		return a.bot.OpenModal(update.Interaction, modalID(sessionID, "set_limit"), "Set action limit", []discordinfra.ModalInput{
			{ID: "action", Label: "Action key", Placeholder: "ban", Required: true},
			{ID: "max_uses", Label: "Max uses (0 clears)", Placeholder: "3", Required: true},
			{ID: "window", Label: "Window", Placeholder: "10m, 1h, 6h, 24h or 7d", Required: false},
		})
	case action == "reach_select_override":
		return a.bot.OpenModal(update.Interaction, modalID(sessionID, "reach_select_override"), "Set override", []discordinfra.ModalInput{
			{ID: "action", Label: "Action key", Placeholder: "warn", Required: true},
			{ID: "override", Label: "allow, deny or inherit", Placeholder: "deny", Required: true},
		})
	}

	values := update.Values
	if value != "" {
		values = []string{value}
	}

	res, err := a.governance.HandleAction(ctx, govsvc.ActionRequest{
		SessionID: sessionID,
		Action:    action,
		ActorID:   update.UserID,
		Values:    values,
	})
	if err != nil {
		return a.bot.RespondNotice(update.Interaction, actionErrorMessage(err))
	}

	if action == "save_confirm" {
		if obsErr := a.dashboard.ObserveCommit(ctx); obsErr != nil {
			a.logger.Warn("record governance commit", zap.Error(obsErr))
		}
	}
	if res.Closed {
		return a.bot.RespondNotice(update.Interaction, res.Notice)
	}
	return a.bot.UpdateView(update.Interaction, res.View, componentID(sessionID))
}

func (a *App) handleModal(ctx context.Context, update discordinfra.ModalUpdate) error {
	if a.bot == nil {
		return nil
	}

	sessionID, action, _, ok := parseCustomID(update.CustomID, "govm")
	if !ok {
		return nil
	}

	res, err := a.governance.HandleAction(ctx, govsvc.ActionRequest{
		SessionID: sessionID,
		Action:    action,
		ActorID:   update.UserID,
		Data:      update.Fields,
	})
	if err != nil {
		return a.bot.RespondNotice(update.Interaction, actionErrorMessage(err))
	}
	return a.bot.UpdateView(update.Interaction, res.View, componentID(sessionID))
}

// componentID builds custom ids of the form gov:<session>:<action> with
// an optional trailing value argument.
func componentID(sessionID string) func(action, value string) string {
	return func(action, value string) string {
		id := "gov:" + sessionID + ":" + action
		if value != "" {
			id += ":" + value
		}
		return id
	}
}

func modalID(sessionID, action string) string {
	return "govm:" + sessionID + ":" + action
}

func parseCustomID(data, prefix string) (sessionID, action, value string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 4)
	if len(parts) < 3 || parts[0] != prefix {
		return "", "", "", false
	}
	if len(parts) == 4 {
		value = parts[3]
	}
	return parts[1], parts[2], value, true
}

func actionErrorMessage(err error) string {
	switch {
	case errors.Is(err, govsvc.ErrSessionNotFound):
		return "This panel is no longer active. Run /roles to open a new one."
	case errors.Is(err, govsvc.ErrForbidden):
		return "This panel belongs to another moderator."
	case errors.Is(err, govsvc.ErrSessionExpired):
		return "The session timed out. Reopen or close it from the panel."
	case errors.Is(err, govsvc.ErrNoPendingChanges):
		return "Nothing to save."
	case errors.Is(err, govsvc.ErrUnsavedChanges):
		return "Save or discard your changes before refreshing."
	case errors.Is(err, govsvc.ErrValidation):
		return "Invalid input: " + trimSentinel(err, govsvc.ErrValidation)
	case errors.Is(err, govsvc.ErrPersistence):
		return "Saving failed: " + trimSentinel(err, govsvc.ErrPersistence)
	case errors.Is(err, govsvc.ErrUnknownRole):
		return "That role is not managed here."
	default:
		return "Something went wrong, try again later."
	}
}

// trimSentinel strips the wrapped sentinel prefix so the user sees only
// the specific part of the message.
func trimSentinel(err error, sentinel error) string {
	msg := err.Error()
	if rest, found := strings.CutPrefix(msg, sentinel.Error()); found {
		return strings.TrimPrefix(strings.TrimSpace(rest), ": ")
	}
	return msg
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
