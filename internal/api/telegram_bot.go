// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abelzeko/population-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// maxMessageLength is the Telegram limit for a single text message
	maxMessageLength = 4096
	// maxCallbackData is the Telegram limit for inline button payloads
	maxCallbackData = 64
	queryTimeout    = 30 * time.Second
)

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.PopulationUseCase
	charts  *ChartCache
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.PopulationUseCase, charts *ChartCache) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
		charts:  charts,
	}, nil
}

// Start begins listening for and handling Telegram messages until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) {
	log.Printf("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping Telegram bot")
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.CallbackQuery != nil:
				t.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				log.Printf("Received message from %s: %s", senderName(update.Message), update.Message.Text)
				t.handleMessage(ctx, update.Message)
			}
		}
	}
}

// handleMessage processes a Telegram message and sends every response
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	var responses []tgbotapi.Chattable
	if message.IsCommand() {
		log.Printf("Handling /%s command with args '%s' for user %s",
			message.Command(), message.CommandArguments(), senderName(message))
		responses = t.commandResponses(message.Chat.ID, message.Command(), message.CommandArguments())
	} else {
		responses = t.textResponses(ctx, message.Chat.ID, message.Text)
	}

	log.Printf("Sending %d response(s) to user %s", len(responses), senderName(message))
	t.send(responses)
}

// handleCallback answers an inline keyboard press
func (t *TelegramBot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	from := "unknown user"
	if query.From != nil {
		from = fmt.Sprintf("%s (ID: %d)", query.From.UserName, query.From.ID)
	}
	log.Printf("Received callback '%s' from %s", query.Data, from)

	if _, err := t.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
	if query.Message == nil {
		return
	}
	t.send(t.callbackResponses(query.Message.Chat.ID, query.Data))
}

func (t *TelegramBot) send(responses []tgbotapi.Chattable) {
	for _, response := range responses {
		if _, err := t.bot.Send(response); err != nil {
			log.Printf("Error sending message: %v", err)
		}
	}
}

// commandResponses builds the replies to /start, /help and the country commands
func (t *TelegramBot) commandResponses(chatID int64, command, args string) []tgbotapi.Chattable {
	switch command {
	case "start":
		return text(chatID, "Welcome to the Population Bot! Use /countries to see the list of available countries or /help for more information.")

	case "help":
		return text(chatID, "Available commands:\n"+
			"/start - Start the bot\n"+
			"/countries - Show the list of countries\n"+
			"/country [name] - Show capital, density, area and world share\n"+
			"/growth [name] - Show the historical population\n"+
			fmt.Sprintf("/projection [name] - Show the expected population in %d\n", t.useCase.TargetYear())+
			"/dashboard [name] - Show every view at once\n"+
			"/help - Show this help message\n\n"+
			"You can also just type a country name or ask a question.")

	case "countries":
		return t.countriesResponses(chatID)

	case "country", "growth", "projection", "dashboard":
		return t.countryResponses(chatID, command, args)

	default:
		log.Printf("Received unknown command /%s", command)
		return text(chatID, "Unknown command. Use /help to see available commands.")
	}
}

// countriesResponses lists the directory, split to fit Telegram's message limit
func (t *TelegramBot) countriesResponses(chatID int64) []tgbotapi.Chattable {
	countries, err := t.useCase.GetAvailableCountries()
	if err != nil {
		log.Printf("Error fetching countries: %v", err)
		return text(chatID, "Error fetching population data. Please try again later.")
	}
	if len(countries) == 0 {
		return text(chatID, "The dataset is empty, there are no countries to show.")
	}

	lines := make([]string, 0, len(countries)+2)
	lines = append(lines, fmt.Sprintf("Available countries (%d):\n", len(countries)))
	for _, country := range countries {
		lines = append(lines, "• "+country)
	}
	lines = append(lines, "\nUse /country [name] to get detailed information.")

	var responses []tgbotapi.Chattable
	for _, chunk := range splitLines(lines, maxMessageLength) {
		responses = append(responses, tgbotapi.NewMessage(chatID, chunk))
	}
	return responses
}

// countryResponses renders one view, or the whole dashboard, for the named country
func (t *TelegramBot) countryResponses(chatID int64, view, args string) []tgbotapi.Chattable {
	if strings.TrimSpace(args) == "" {
		return text(chatID, t.usageHint(view))
	}

	country, err := t.useCase.ResolveCountryName(args)
	if err != nil {
		return text(chatID, usecases.DescribeError(err))
	}
	return t.viewResponses(chatID, view, country)
}

// callbackResponses decodes "<view>:<country>" button payloads
func (t *TelegramBot) callbackResponses(chatID int64, data string) []tgbotapi.Chattable {
	view, country, ok := strings.Cut(data, ":")
	if !ok || country == "" {
		log.Printf("Malformed callback data: %q", data)
		return nil
	}
	switch view {
	case "country", "growth", "projection", "dashboard":
		return t.viewResponses(chatID, view, country)
	default:
		log.Printf("Unknown callback view: %q", view)
		return nil
	}
}

// textResponses handles free text: a country name shows its dashboard, anything else goes to the interpreter
func (t *TelegramBot) textResponses(ctx context.Context, chatID int64, message string) []tgbotapi.Chattable {
	if country, err := t.useCase.ResolveCountryName(message); err == nil {
		return t.viewResponses(chatID, "dashboard", country)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	response, err := t.useCase.HandleNaturalLanguageQuery(ctx, message)
	if err != nil {
		log.Printf("Error handling query: %v", err)
		return text(chatID, "Error fetching population data. Please try again later.")
	}
	return text(chatID, response)
}

// viewResponses renders a resolved country; chart failures are logged and the text still goes out
func (t *TelegramBot) viewResponses(chatID int64, view, country string) []tgbotapi.Chattable {
	var (
		body   string
		charts []string
	)

	switch view {
	case "country":
		info, err := t.useCase.GetCountryInfo(country)
		body = formatOrDescribe(t.useCase.FormatCountryInfo(info), err)
	case "growth":
		series, err := t.useCase.GetGrowthSeries(country)
		body = formatOrDescribe(t.useCase.FormatGrowthSeries(country, series), err)
		if err == nil {
			charts = []string{ChartGrowth}
		}
	case "projection":
		projection, err := t.useCase.GetGrowthProjection(country)
		body = formatOrDescribe(t.useCase.FormatProjection(projection), err)
		if err == nil {
			charts = []string{ChartProjection}
		}
	default:
		dashboard := t.useCase.RefreshDashboard(country)
		body = t.useCase.FormatDashboard(dashboard)
		if dashboard.SeriesErr == nil {
			charts = append(charts, ChartGrowth)
		}
		if dashboard.ProjectionErr == nil {
			charts = append(charts, ChartProjection)
		}
	}

	msg := tgbotapi.NewMessage(chatID, body)
	if keyboard, ok := viewKeyboard(country); ok {
		msg.ReplyMarkup = keyboard
	}
	responses := []tgbotapi.Chattable{msg}

	if t.charts == nil {
		return responses
	}
	for _, kind := range charts {
		img, _, err := t.charts.Chart(kind, country)
		if err != nil {
			log.Printf("Error rendering %s chart for %s: %v", kind, country, err)
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: kind + ".png", Bytes: img})
		photo.Caption = chartCaption(kind, country, t.useCase.TargetYear())
		responses = append(responses, photo)
	}
	return responses
}

// usageHint explains how to pick a country, naming the default selection
func (t *TelegramBot) usageHint(view string) string {
	country, err := t.useCase.DefaultCountry()
	if err != nil {
		log.Printf("Error fetching default country: %v", err)
		return "Error fetching population data. Please try again later."
	}
	if country == "" {
		return "The dataset is empty, there are no countries to show."
	}
	return fmt.Sprintf("Please specify a country name. Example: /%s %s", view, country)
}

// viewKeyboard offers the other views of a country as inline buttons
func viewKeyboard(country string) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len("projection:"+country) > maxCallbackData {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Info", "country:"+country),
			tgbotapi.NewInlineKeyboardButtonData("📈 Growth", "growth:"+country),
			tgbotapi.NewInlineKeyboardButtonData("🔮 Projection", "projection:"+country),
		),
	), true
}

// senderName identifies who sent message, falling back to the chat ID when there is no sender
func senderName(message *tgbotapi.Message) string {
	if message.From == nil {
		if message.Chat == nil {
			return "unknown chat"
		}
		return fmt.Sprintf("chat %d", message.Chat.ID)
	}
	return fmt.Sprintf("%s (ID: %d)", message.From.UserName, message.From.ID)
}

func chartCaption(kind, country string, targetYear int) string {
	if kind == ChartProjection {
		return fmt.Sprintf("%s: current vs expected population in %d", country, targetYear)
	}
	return fmt.Sprintf("%s: population over time", country)
}

func formatOrDescribe(formatted string, err error) string {
	if err != nil {
		return usecases.DescribeError(err)
	}
	return formatted
}

func text(chatID int64, body string) []tgbotapi.Chattable {
	return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, body)}
}

// splitLines joins lines into chunks no longer than limit bytes
func splitLines(lines []string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
