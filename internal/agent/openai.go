package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Tool names exposed to the model.
const (
	toolMakeMove  = "makeMove"
	toolMakeMoves = "makeMoves"
)

var moveTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolMakeMove,
			Description: "Make a single move: reveal or flag one cell.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"action": {"type": "string", "enum": ["reveal", "flag"]},
					"row": {"type": "integer", "description": "Zero-based row index"},
					"col": {"type": "integer", "description": "Zero-based column index"},
					"reasoning": {"type": "string", "description": "Why this move"}
				},
				"required": ["action", "row", "col"]
			}`),
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolMakeMoves,
			Description: "Make a batch of moves, applied in order until one is invalid or hits a mine.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"moves": {
						"type": "array",
						"minItems": 1,
						"maxItems": 20,
						"items": {
							"type": "object",
							"properties": {
								"action": {"type": "string", "enum": ["reveal", "flag"]},
								"row": {"type": "integer"},
								"col": {"type": "integer"}
							},
							"required": ["action", "row", "col"]
						}
					},
					"reasoning": {"type": "string", "description": "Why these moves"}
				},
				"required": ["moves"]
			}`),
		},
	},
}

// OpenAIAgent plays through an OpenAI-compatible chat-completion endpoint
// using the makeMove/makeMoves tool protocol.
type OpenAIAgent struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      zerolog.Logger
}

// NewOpenAIAgent creates an agent backed by the given client and model name.
func NewOpenAIAgent(client *openai.Client, model string, temperature float32, logger zerolog.Logger) *OpenAIAgent {
	return &OpenAIAgent{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      logger.With().Str("component", "openai_agent").Str("model", model).Logger(),
	}
}

// ProposeMoves implements Mover. Protocol violations in the model's reply
// (no tool call, unknown tool, malformed arguments) come back as errors for
// the turn loop to retry.
func (a *OpenAIAgent) ProposeMoves(ctx context.Context, req Request) (Decision, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(req)},
		},
		Tools: moveTools,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, fmt.Errorf("chat completion returned no choices")
	}

	a.logger.Debug().
		Str("agent_id", req.AgentID).
		Int("turn", req.Turn).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Model reply received")

	return parseDecision(resp.Choices[0].Message.ToolCalls)
}

// parseDecision extracts a Decision from the first function call of a reply.
func parseDecision(calls []openai.ToolCall) (Decision, error) {
	for _, call := range calls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		switch call.Function.Name {
		case toolMakeMove:
			var payload struct {
				Action    Action `json:"action"`
				Row       int    `json:"row"`
				Col       int    `json:"col"`
				Reasoning string `json:"reasoning"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &payload); err != nil {
				return Decision{}, fmt.Errorf("parse %s arguments: %w", toolMakeMove, err)
			}
			return Decision{
				Moves:     []Move{{Action: payload.Action, Row: payload.Row, Col: payload.Col}},
				Reasoning: payload.Reasoning,
			}, nil
		case toolMakeMoves:
			var payload struct {
				Moves     []Move `json:"moves"`
				Reasoning string `json:"reasoning"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &payload); err != nil {
				return Decision{}, fmt.Errorf("parse %s arguments: %w", toolMakeMoves, err)
			}
			if len(payload.Moves) == 0 {
				return Decision{}, ErrEmptyBatch
			}
			return Decision{Moves: payload.Moves, Reasoning: payload.Reasoning}, nil
		default:
			return Decision{}, fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name)
		}
	}
	return Decision{}, ErrNoToolCall
}
