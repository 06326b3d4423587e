package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

const intentPromptTemplate = `Classify the following user request as either "compliance" or "query".

"compliance" means the user wants a compliance check, covenant verification, or ratio calculation against a threshold.
"query" means the user is asking a question about document contents.

User request: %s

Respond with exactly one word: compliance or query.`

// IntentClassifier routes a prompt to the compliance or query pipeline.
type IntentClassifier struct {
	gen Generator
}

func NewIntentClassifier(gen Generator) *IntentClassifier {
	return &IntentClassifier{gen: gen}
}

// Classify returns the routed intent. Classification failures degrade to
// the query intent so the request still gets an answer.
func (c *IntentClassifier) Classify(ctx context.Context, prompt string) string {
	raw, err := c.gen.Generate(ctx, fmt.Sprintf(intentPromptTemplate, prompt), 10)
	if err != nil {
		logger.Warn(ctx, "intent classification failed, defaulting to query", "error", err)
		return model.IntentQuery
	}

	answer := strings.ToLower(strings.TrimSpace(raw))
	if answer == model.IntentCompliance {
		return model.IntentCompliance
	}
	return model.IntentQuery
}
