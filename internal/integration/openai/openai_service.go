package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commands the interpreter can return
const (
	CommandCountryInfo = "GetCountryInfo"
	CommandGrowth      = "GetGrowthSeries"
	CommandProjection  = "GetGrowthProjection"
	CommandGeneral     = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"The command to execute: GetCountryInfo, GetGrowthSeries, GetGrowthProjection or GeneralQuery"`
	CountryName string `json:"country_name" jsonschema_description:"The country exactly as spelled in the list of known countries, or an empty string"`
	UserMessage string `json:"user_message" jsonschema_description:"A message to show back to the user in their original language"`
}

// CountryInterpreter maps a free-text message onto a dashboard command.
type CountryInterpreter interface {
	InterpretUserQuery(ctx context.Context, userMessage string, countries []string) (*AgentResponse, error)
}

// openAIServiceImpl implements the CountryInterpreter interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new CountryInterpreter.
func NewOpenAIService(apiKey string) (CountryInterpreter, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &openAIServiceImpl{
		client: client,
		schema: schema,
	}, nil
}

// systemPrompt describes the task and embeds the known countries.
func systemPrompt(countries []string) string {
	return fmt.Sprintf(`You are the assistant of a world population dashboard.

Your job is to work out which country the user is asking about and which view they want.

Known countries: %s

Behavior:
1. If the user wants general facts about a country (capital, area, density, share of the world population):
   - command_name = "%s"
2. If the user wants the historical population of a country:
   - command_name = "%s"
3. If the user wants to know how a country's population will grow or what it will be in the future:
   - command_name = "%s"
4. For 1-3, set country_name to the matching entry of the known countries list, translating the user's
   spelling or language if necessary. If no entry matches, leave country_name empty.
5. Otherwise (greetings, small talk, unrelated questions):
   - command_name = "%s"
   - country_name = ""
6. user_message: a short reply in the user's language.

Output strictly in JSON.`, strings.Join(countries, ", "), CommandCountryInfo, CommandGrowth, CommandProjection, CommandGeneral)
}

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string, countries []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, country name, and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(countries)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content)
}

// ParseAgentResponse decodes the JSON content returned by the model.
func ParseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		log.Printf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}
