package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/somospye/pyebot-sub000/internal/domain/model"
)

type Bot struct {
	session *discordgo.Session
}

type CommandUpdate struct {
	Interaction *discordgo.Interaction
	GuildID     string
	ChannelID   string
	UserID      string
	Username    string
	Command     string
	// MemberRoleIDs and Permissions come from the invoking guild member
	// and are empty for DM interactions.
	MemberRoleIDs []string
	Permissions   int64
}

type ComponentUpdate struct {
	Interaction *discordgo.Interaction
	GuildID     string
	UserID      string
	Username    string
	CustomID    string
	Values      []string
}

type ModalUpdate struct {
	Interaction *discordgo.Interaction
	GuildID     string
	UserID      string
	CustomID    string
	Fields      map[string]string
}

type Handlers struct {
	OnCommand   func(context.Context, CommandUpdate) error
	OnComponent func(context.Context, ComponentUpdate) error
	OnModal     func(context.Context, ModalUpdate) error
}

// ModalInput describes one text input of a modal prompt.
type ModalInput struct {
	ID          string
	Label       string
	Placeholder string
	Value       string
	Required    bool
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}

	session, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{session: session}, nil
}

// RegisterCommands installs the guild slash commands. Scoping them to one
// guild makes them available immediately instead of after global rollout.
func (b *Bot) RegisterCommands(appID, guildID string) error {
	if b == nil || b.session == nil {
		return fmt.Errorf("discord bot is not initialized")
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "roles",
			Description: "Open the role governance panel",
		},
	}
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
	}
	return nil
}

// Listen opens the gateway connection and routes interactions to the
// handlers until the context is cancelled.
func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.session == nil {
		return fmt.Errorf("discord bot is not initialized")
	}

	remove := b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if handlers.OnCommand == nil {
				return
			}
			data := i.ApplicationCommandData()
			update := CommandUpdate{
				Interaction: i.Interaction,
				GuildID:     i.GuildID,
				ChannelID:   i.ChannelID,
				UserID:      interactionUserID(i.Interaction),
				Username:    interactionUsername(i.Interaction),
				Command:     data.Name,
			}
			if i.Member != nil {
				update.MemberRoleIDs = i.Member.Roles
				update.Permissions = i.Member.Permissions
			}
			_ = handlers.OnCommand(ctx, update)

		case discordgo.InteractionMessageComponent:
			if handlers.OnComponent == nil {
				return
			}
			data := i.MessageComponentData()
			_ = handlers.OnComponent(ctx, ComponentUpdate{
				Interaction: i.Interaction,
				GuildID:     i.GuildID,
				UserID:      interactionUserID(i.Interaction),
				Username:    interactionUsername(i.Interaction),
				CustomID:    data.CustomID,
				Values:      data.Values,
			})

		case discordgo.InteractionModalSubmit:
			if handlers.OnModal == nil {
				return
			}
			data := i.ModalSubmitData()
			_ = handlers.OnModal(ctx, ModalUpdate{
				Interaction: i.Interaction,
				GuildID:     i.GuildID,
				UserID:      interactionUserID(i.Interaction),
				CustomID:    data.CustomID,
				Fields:      modalFields(data),
			})
		}
	})
	defer remove()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	<-ctx.Done()
	return b.session.Close()
}

// RespondView renders the view as the initial ephemeral reply to an
// interaction.
func (b *Bot) RespondView(inter *discordgo.Interaction, view model.View, customID func(action, value string) string) error {
	return b.respondView(inter, view, customID, discordgo.InteractionResponseChannelMessageWithSource)
}

// UpdateView replaces the message the interaction originated from.
func (b *Bot) UpdateView(inter *discordgo.Interaction, view model.View, customID func(action, value string) string) error {
	return b.respondView(inter, view, customID, discordgo.InteractionResponseUpdateMessage)
}

func (b *Bot) respondView(inter *discordgo.Interaction, view model.View, customID func(action, value string) string, kind discordgo.InteractionResponseType) error {
	if b == nil || b.session == nil {
		return fmt.Errorf("discord bot is not initialized")
	}
	if inter == nil {
		return fmt.Errorf("interaction is required")
	}

	err := b.session.InteractionRespond(inter, &discordgo.InteractionResponse{
		Type: kind,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{viewEmbed(view)},
			Components: viewComponents(view, customID),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("respond to interaction: %w", err)
	}
	return nil
}

// RespondNotice sends a plain ephemeral text reply.
func (b *Bot) RespondNotice(inter *discordgo.Interaction, text string) error {
	if b == nil || b.session == nil {
		return fmt.Errorf("discord bot is not initialized")
	}
	if inter == nil {
		return fmt.Errorf("interaction is required")
	}

	err := b.session.InteractionRespond(inter, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("respond to interaction: %w", err)
	}
	return nil
}

// OpenModal shows a text input prompt.
func (b *Bot) OpenModal(inter *discordgo.Interaction, customID, title string, inputs []ModalInput) error {
	if b == nil || b.session == nil {
		return fmt.Errorf("discord bot is not initialized")
	}
	if inter == nil {
		return fmt.Errorf("interaction is required")
	}

	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, input := range inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    input.ID,
				Label:       input.Label,
				Style:       discordgo.TextInputShort,
				Placeholder: input.Placeholder,
				Value:       input.Value,
				Required:    input.Required,
			},
		}})
	}

	err := b.session.InteractionRespond(inter, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	})
	if err != nil {
		return fmt.Errorf("open modal: %w", err)
	}
	return nil
}

func viewEmbed(view model.View) *discordgo.MessageEmbed {
	description := view.Description
	if len(view.Lines) > 0 {
		if description != "" {
			description += "\n\n"
		}
		description += strings.Join(view.Lines, "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       view.Title,
		Description: description,
	}
}

// viewComponents lays the view out as Discord message components. A
// select menu, when present, occupies its own row; buttons are chunked
// into rows of at most five.
func viewComponents(view model.View, customID func(action, value string) string) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent

	if view.SelectAction != "" {
		if len(view.Options) > 0 {
			options := make([]discordgo.SelectMenuOption, 0, len(view.Options))
			for _, opt := range view.Options {
				options = append(options, discordgo.SelectMenuOption{
					Value:       opt.Value,
					Label:       opt.Label,
					Description: opt.Description,
					Default:     opt.Selected,
				})
			}
			rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID: customID(view.SelectAction, ""),
					Options:  options,
				},
			}})
		} else {
			// No explicit options means the platform supplies them, as
			// with the native role picker.
			rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType: discordgo.RoleSelectMenu,
					CustomID: customID(view.SelectAction, ""),
				},
			}})
		}
	}

	var row []discordgo.MessageComponent
	for _, btn := range view.Buttons {
		style := discordgo.SecondaryButton
		if btn.Danger {
			style = discordgo.DangerButton
		}
		row = append(row, discordgo.Button{
			CustomID: customID(btn.Action, btn.Value),
			Label:    btn.Label,
			Style:    style,
			Disabled: btn.Disable,
		})
		if len(row) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func interactionUserID(inter *discordgo.Interaction) string {
	if inter.Member != nil && inter.Member.User != nil {
		return inter.Member.User.ID
	}
	if inter.User != nil {
		return inter.User.ID
	}
	return ""
}

func interactionUsername(inter *discordgo.Interaction) string {
	if inter.Member != nil && inter.Member.User != nil {
		return inter.Member.User.Username
	}
	if inter.User != nil {
		return inter.User.Username
	}
	return ""
}

func modalFields(data discordgo.ModalSubmitInteractionData) map[string]string {
	fields := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}
