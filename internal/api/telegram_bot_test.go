package api

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/abelzeko/population-bot/internal/entities"
	"github.com/abelzeko/population-bot/internal/integration"
	"github.com/abelzeko/population-bot/internal/repository"
	"github.com/abelzeko/population-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const testChatID int64 = 42

func testDataset() entities.Dataset {
	return entities.Dataset{
		Years: []int{2022, 2020, 1970},
		Records: []entities.PopulationRecord{
			{
				Country: "Testland", Capital: "Test City", Density: 0.83, Area: 1200, WorldPopulationPercentage: 0.01,
				GrowthRate: "2.00%", Populations: map[int]int64{2022: 1000, 2020: 980, 1970: 700},
			},
			{
				Country: "Sampleland", Capital: "Sample Town", Density: 500.5, Area: 5000, WorldPopulationPercentage: 0.03,
				GrowthRate: "1.52%", Populations: map[int]int64{2022: 2500000, 2020: 2400000, 1970: 1400000},
			},
			{
				Country: "Brokenland", Capital: "Nowhere", Density: 1, Area: 10,
				GrowthRate: "N/A%", Populations: map[int]int64{2022: 10, 2020: 10, 1970: 10},
			},
		},
	}
}

func newTestUseCase(ds entities.Dataset) *usecases.PopulationUseCase {
	return usecases.NewPopulationUseCase(repository.NewMemoryPopulationRepository(ds), nil, usecases.ProjectionOptions{})
}

func newTestBot(ds entities.Dataset) *TelegramBot {
	useCase := newTestUseCase(ds)
	return &TelegramBot{
		useCase: useCase,
		charts:  NewChartCache(useCase, integration.NewChartRenderer()),
	}
}

func messageText(t *testing.T, c tgbotapi.Chattable) string {
	t.Helper()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected a text message, got %T", c)
	}
	return msg.Text
}

func countPhotos(responses []tgbotapi.Chattable) int {
	photos := 0
	for _, r := range responses {
		if _, ok := r.(tgbotapi.PhotoConfig); ok {
			photos++
		}
	}
	return photos
}

func TestStartAndHelpCommands(t *testing.T) {
	bot := newTestBot(testDataset())

	start := bot.commandResponses(testChatID, "start", "")
	if len(start) != 1 || !strings.Contains(messageText(t, start[0]), "/countries") {
		t.Errorf("Unexpected /start response: %v", start)
	}

	help := messageText(t, bot.commandResponses(testChatID, "help", "")[0])
	for _, command := range []string{"/country", "/growth", "/projection", "/dashboard", "2050"} {
		if !strings.Contains(help, command) {
			t.Errorf("Expected /help to mention %s, got %q", command, help)
		}
	}

	unknown := messageText(t, bot.commandResponses(testChatID, "weather", "")[0])
	if !strings.Contains(unknown, "Unknown command") {
		t.Errorf("Unexpected response to unknown command: %q", unknown)
	}
}

func TestCountriesCommand(t *testing.T) {
	bot := newTestBot(testDataset())

	responses := bot.commandResponses(testChatID, "countries", "")
	if len(responses) != 1 {
		t.Fatalf("Expected a single message, got %d", len(responses))
	}
	text := messageText(t, responses[0])
	if strings.Index(text, "Testland") > strings.Index(text, "Sampleland") {
		t.Errorf("Expected countries in dataset order, got %q", text)
	}
}

func TestCountriesCommandSplitsLongLists(t *testing.T) {
	ds := entities.Dataset{Years: []int{2022}}
	for i := 0; i < 400; i++ {
		ds.Records = append(ds.Records, entities.PopulationRecord{
			Country:     fmt.Sprintf("Country number %03d", i),
			Populations: map[int]int64{2022: 1},
		})
	}
	bot := newTestBot(ds)

	responses := bot.commandResponses(testChatID, "countries", "")
	if len(responses) < 2 {
		t.Fatalf("Expected the list to be split, got %d message(s)", len(responses))
	}
	total := 0
	for _, r := range responses {
		text := messageText(t, r)
		if len(text) > maxMessageLength {
			t.Errorf("Message exceeds the limit: %d bytes", len(text))
		}
		total += strings.Count(text, "• ")
	}
	if total != 400 {
		t.Errorf("Expected 400 listed countries, got %d", total)
	}
}

func TestCountriesCommandEmptyDataset(t *testing.T) {
	bot := newTestBot(entities.Dataset{})

	text := messageText(t, bot.commandResponses(testChatID, "countries", "")[0])
	if !strings.Contains(text, "empty") {
		t.Errorf("Expected empty dataset message, got %q", text)
	}
}

func TestCountryCommand(t *testing.T) {
	bot := newTestBot(testDataset())

	responses := bot.commandResponses(testChatID, "country", "testland")
	if len(responses) != 1 {
		t.Fatalf("Expected a single message, got %d", len(responses))
	}
	msg := responses[0].(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "Test City") {
		t.Errorf("Expected capital in response, got %q", msg.Text)
	}
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(keyboard.InlineKeyboard) != 1 || len(keyboard.InlineKeyboard[0]) != 3 {
		t.Fatalf("Expected an inline keyboard with three buttons, got %#v", msg.ReplyMarkup)
	}
	if data := keyboard.InlineKeyboard[0][1].CallbackData; data == nil || *data != "growth:Testland" {
		t.Errorf("Unexpected growth button payload: %v", data)
	}
}

func TestCountryCommandWithoutArguments(t *testing.T) {
	bot := newTestBot(testDataset())

	text := messageText(t, bot.commandResponses(testChatID, "growth", "  ")[0])
	if text != "Please specify a country name. Example: /growth Testland" {
		t.Errorf("Unexpected usage hint: %q", text)
	}
}

func TestCountryCommandUnknownCountry(t *testing.T) {
	bot := newTestBot(testDataset())

	text := messageText(t, bot.commandResponses(testChatID, "projection", "Atlantis")[0])
	if !strings.Contains(text, "No information found for country 'Atlantis'") {
		t.Errorf("Unexpected response: %q", text)
	}
}

func TestGrowthAndProjectionCommandsSendCharts(t *testing.T) {
	bot := newTestBot(testDataset())

	growth := bot.commandResponses(testChatID, "growth", "Sampleland")
	if countPhotos(growth) != 1 {
		t.Errorf("Expected one growth chart, got %d", countPhotos(growth))
	}
	if text := messageText(t, growth[0]); !strings.Contains(text, "2022: 2,500,000") {
		t.Errorf("Unexpected growth text: %q", text)
	}

	projection := bot.commandResponses(testChatID, "projection", "Testland")
	if countPhotos(projection) != 1 {
		t.Errorf("Expected one projection chart, got %d", countPhotos(projection))
	}
	if text := messageText(t, projection[0]); !strings.Contains(text, "1,741 people expected in 2050") {
		t.Errorf("Unexpected projection text: %q", text)
	}
}

func TestDashboardCommandIsolatesProjectionFailure(t *testing.T) {
	bot := newTestBot(testDataset())

	responses := bot.commandResponses(testChatID, "dashboard", "Brokenland")
	text := messageText(t, responses[0])
	if !strings.Contains(text, "Nowhere") || !strings.Contains(text, "not a valid percentage") {
		t.Errorf("Expected info and a projection error, got %q", text)
	}
	if countPhotos(responses) != 1 {
		t.Errorf("Expected only the growth chart, got %d charts", countPhotos(responses))
	}
}

func TestCallbackResponses(t *testing.T) {
	bot := newTestBot(testDataset())

	responses := bot.callbackResponses(testChatID, "projection:Testland")
	if len(responses) == 0 || !strings.Contains(messageText(t, responses[0]), "Expected growth of Testland") {
		t.Errorf("Unexpected callback response: %v", responses)
	}

	for _, data := range []string{"", "growth", "growth:", "weather:Testland"} {
		if responses := bot.callbackResponses(testChatID, data); responses != nil {
			t.Errorf("Expected no response for %q, got %v", data, responses)
		}
	}
}

func TestTextResponses(t *testing.T) {
	bot := newTestBot(testDataset())

	responses := bot.textResponses(context.Background(), testChatID, "sampleland")
	if !strings.Contains(messageText(t, responses[0]), "Sample Town") {
		t.Errorf("Expected the dashboard for a country name, got %v", responses)
	}

	responses = bot.textResponses(context.Background(), testChatID, "how is the weather?")
	if len(responses) != 1 || !strings.Contains(messageText(t, responses[0]), "I don't understand") {
		t.Errorf("Unexpected response to free text: %v", responses)
	}
}

func TestSplitLines(t *testing.T) {
	chunks := splitLines([]string{"aaaa", "bbbb", "cccc"}, 9)
	if len(chunks) != 2 || chunks[0] != "aaaa\nbbbb" || chunks[1] != "cccc" {
		t.Errorf("Unexpected chunks: %q", chunks)
	}
	if chunks := splitLines(nil, 10); chunks != nil {
		t.Errorf("Expected no chunks, got %q", chunks)
	}
}

func TestSenderName(t *testing.T) {
	withUser := &tgbotapi.Message{From: &tgbotapi.User{ID: 7, UserName: "tester"}, Chat: &tgbotapi.Chat{ID: testChatID}}
	if got := senderName(withUser); got != "tester (ID: 7)" {
		t.Errorf("Unexpected sender for a user message: %q", got)
	}

	channelPost := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}}
	if got := senderName(channelPost); got != "chat 42" {
		t.Errorf("Expected the chat ID when there is no sender, got %q", got)
	}

	if got := senderName(&tgbotapi.Message{}); got != "unknown chat" {
		t.Errorf("Unexpected sender for an empty message: %q", got)
	}
}

func TestGrowthCommandWithMissingYear(t *testing.T) {
	ds := entities.Dataset{
		Years: []int{2022, 1970},
		Records: []entities.PopulationRecord{
			{Country: "Newland", Capital: "New City", Area: 5000, GrowthRate: "1.00%", Populations: map[int]int64{2022: 5000}},
		},
	}
	bot := newTestBot(ds)

	responses := bot.commandResponses(testChatID, "growth", "Newland")
	if text := messageText(t, responses[0]); !strings.Contains(text, "1970: n/a") || !strings.Contains(text, "2022: 5,000") {
		t.Errorf("Unexpected growth text: %q", text)
	}
	if countPhotos(responses) != 1 {
		t.Errorf("Expected the chart of the known years, got %d charts", countPhotos(responses))
	}
}
