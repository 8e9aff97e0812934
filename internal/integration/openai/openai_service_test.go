package openai

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewOpenAIServiceRequiresKey(t *testing.T) {
	if _, err := NewOpenAIService(""); err == nil {
		t.Error("Expected an error without an API key")
	}
}

func TestGenerateSchemaListsFields(t *testing.T) {
	raw, err := json.Marshal(GenerateSchema[AgentResponse]())
	if err != nil {
		t.Fatalf("Failed to marshal schema: %v", err)
	}
	schema := string(raw)
	for _, field := range []string{"command_name", "country_name", "user_message"} {
		if !strings.Contains(schema, field) {
			t.Errorf("Expected schema to mention %s: %s", field, schema)
		}
	}
	if !strings.Contains(schema, `"additionalProperties":false`) {
		t.Errorf("Expected a closed schema for strict mode: %s", schema)
	}
}

func TestSystemPromptEmbedsCountries(t *testing.T) {
	prompt := systemPrompt([]string{"Testland", "Sampleland"})
	if !strings.Contains(prompt, "Testland, Sampleland") {
		t.Errorf("Expected the prompt to list countries, got %s", prompt)
	}
	if !strings.Contains(prompt, CommandProjection) {
		t.Errorf("Expected the prompt to mention %s", CommandProjection)
	}
}

func TestParseAgentResponse(t *testing.T) {
	resp, err := ParseAgentResponse(`{"command_name":"GetGrowthProjection","country_name":"Testland","user_message":"On it."}`)
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.CommandName != CommandProjection || resp.CountryName != "Testland" || resp.UserMessage != "On it." {
		t.Errorf("Unexpected response: %+v", resp)
	}

	if _, err := ParseAgentResponse("not json"); err == nil {
		t.Error("Expected an error for malformed content")
	}
}
