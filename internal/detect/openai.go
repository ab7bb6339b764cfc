package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

const judgeSystemPrompt = "You review consecutive video frames for scene changes. " +
	"A scene change occurs when there is a different location or setting, a significant " +
	"change in camera angle (not minor movements), a completely different action or " +
	"subject, or a major lighting change. Minor changes within the same scene are NOT " +
	"scene changes. Answer with JSON only."

// OpenAIJudge asks a vision-capable chat model whether the scene changed
// within a batch of frames. The API key is taken from OPENAI_API_KEY.
type OpenAIJudge struct {
	logger zerolog.Logger
	client openai.Client
	model  string
}

// NewOpenAIJudge creates a judge backed by the given model. baseURL may be
// empty for the default endpoint.
func NewOpenAIJudge(logger zerolog.Logger, model, baseURL string) *OpenAIJudge {
	clientOpts := []option.RequestOption{}
	if strings.TrimSpace(baseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIJudge{
		logger: logger.With().Str("component", "openai-judge").Logger(),
		client: openai.NewClient(clientOpts...),
		model:  model,
	}
}

// Judge submits one batch of frames and parses the model's verdict
func (j *OpenAIJudge) Judge(ctx context.Context, batch Batch) (Verdict, error) {
	if len(batch.Frames) == 0 {
		return Verdict{}, fmt.Errorf("%w: empty batch", ErrMalformedVerdict)
	}

	start := batch.StartIndex()
	end := batch.EndIndex()

	indices := make([]string, 0, len(batch.Frames))
	for _, f := range batch.Frames {
		indices = append(indices, fmt.Sprintf("%d", f.Index))
	}

	prompt := fmt.Sprintf(
		"These are consecutive sampled frames with source frame indices [%s], in temporal order. "+
			"Did the scene change within this batch? Respond with JSON: "+
			`{"changed": true|false, "change_at_index": <frame index of the first frame of the new scene, or null>, "description": "<one sentence>"}. `+
			"change_at_index must be one of the listed indices.",
		strings.Join(indices, ", "))
	if batch.Context != "" {
		prompt += "\nPreceding scene: " + batch.Context
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
	}
	for _, f := range batch.Frames {
		url, err := frameDataURL(f)
		if err != nil {
			return Verdict{}, fmt.Errorf("%w: encoding frame %d: %v", ErrInvalidFrame, f.Index, err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    url,
			Detail: "low",
		}))
	}

	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(judgeSystemPrompt),
			openai.UserMessage(parts),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(150),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: no choices returned", ErrMalformedVerdict)
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	j.logger.Debug().Int("batch_start", start).Str("raw", raw).Msg("judge response")

	return parseVerdict(raw, start, end)
}

// Close is a no-op; the client holds no connection state
func (j *OpenAIJudge) Close() error {
	return nil
}

// wire shape of the model's JSON answer
type verdictPayload struct {
	Changed       bool   `json:"changed"`
	ChangeAtIndex *int   `json:"change_at_index"`
	Description   string `json:"description"`
}

// parseVerdict converts the model's raw answer into a Verdict, validating
// that any named index lies within the batch
func parseVerdict(raw string, batchStart, batchEnd int) (Verdict, error) {
	if raw == "" {
		return Verdict{}, fmt.Errorf("%w: empty response", ErrMalformedVerdict)
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		fixed := extractJSONObject(raw)
		if fixed == "" {
			return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
		if err := json.Unmarshal([]byte(fixed), &payload); err != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
	}

	v := Verdict{
		BatchStart:  batchStart,
		BatchEnd:    batchEnd,
		Changed:     payload.Changed,
		ChangeAt:    NoChangeIndex,
		Description: strings.TrimSpace(payload.Description),
	}

	if payload.Changed && payload.ChangeAtIndex != nil {
		idx := *payload.ChangeAtIndex
		if idx < batchStart || idx > batchEnd {
			return Verdict{}, fmt.Errorf("%w: change_at_index %d outside batch [%d, %d]",
				ErrMalformedVerdict, idx, batchStart, batchEnd)
		}
		v.ChangeAt = idx
	}

	return v, nil
}

// extractJSONObject pulls the first balanced JSON object out of text that
// may carry markdown fences or prose around it
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// frameDataURL encodes a frame as a base64 JPEG data URL for the vision API
func frameDataURL(f Frame) (string, error) {
	if f.Image == nil {
		return "", fmt.Errorf("no pixel data")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: 80}); err != nil {
		return "", err
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
