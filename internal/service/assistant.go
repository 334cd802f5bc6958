package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const assistantModel = "gemini-1.5-flash"

// Assistant answers beginner finance questions through Gemini. The
// prompts keep the advisor persona simple: plain language, one
// analogy, answers translated to the learner's language.
type Assistant struct {
	client *genai.Client
	log    *logrus.Logger
}

// NewAssistant initializes the Gemini client. The API key is read from
// the environment by the SDK (GEMINI_API_KEY / GOOGLE_API_KEY).
func NewAssistant(ctx context.Context, log *logrus.Logger) (*Assistant, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Assistant{client: client, log: log}, nil
}

// Answer responds to a free-form learner question.
func (a *Assistant) Answer(ctx context.Context, query, language string) (string, error) {
	if language == "" {
		language = "English"
	}
	prompt := fmt.Sprintf("You are a financial advisor for beginners. Answer the query: %q in simple language with an analogy. Translate the response into %s if not English.", query, language)
	return a.generate(ctx, prompt)
}

// AnalyzePortfolio explains the risk profile of a portfolio document.
func (a *Assistant) AnalyzePortfolio(ctx context.Context, portfolioJSON, language string) (string, error) {
	if language == "" {
		language = "English"
	}
	prompt := fmt.Sprintf("You are a financial advisor for beginners. Analyze this portfolio for risk: %s. Provide a simple explanation with an analogy, in %s.", portfolioJSON, language)
	return a.generate(ctx, prompt)
}

func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, assistantModel, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from model")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
