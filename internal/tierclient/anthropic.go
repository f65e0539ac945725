// Package tierclient provides the concrete clients behind the router's
// TierClient interface: the Anthropic-backed paid tiers and the local
// offline endpoint.
package tierclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/Jmi2020/KITT-sub006/internal/router"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// AnthropicConfig configures an Anthropic-backed tier client.
type AnthropicConfig struct {
	// Model is the model this tier dispatches to.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, construction fails unless
	// Bedrock is enabled; the key is passed in, never read ambiently here.
	APIKey string
	// MaxTokens bounds the response size. Defaults to 4096.
	MaxTokens int64
	// UseAWSBedrock routes the call through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// InputUSDPerMTok and OutputUSDPerMTok price the metered usage so the
	// dispatch can report actual cost to the ledger.
	InputUSDPerMTok  float64
	OutputUSDPerMTok float64
}

// AnthropicClient dispatches requests to an Anthropic model and reports the
// metered cost from token usage.
type AnthropicClient struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	inPrice   float64
	outPrice  float64
}

// NewAnthropicClient creates a client for one paid tier.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	var opts []option.RequestOption

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
		model = translateModelForBedrock(model)
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic tier client requires an API key")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicClient{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		inPrice:   cfg.InputUSDPerMTok,
		outPrice:  cfg.OutputUSDPerMTok,
	}, nil
}

// Dispatch implements router.TierClient.
func (c *AnthropicClient) Dispatch(ctx context.Context, req *models.Request, tier models.Tier) (*router.DispatchResult, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Payload)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tier %s dispatch: %w", tier.ID, err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	return &router.DispatchResult{
		Payload:       result.String(),
		ActualCostUSD: c.meterCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}, nil
}

// meterCost prices the metered token usage. With no pricing configured the
// tier's estimate stands and the metered cost is zero.
func (c *AnthropicClient) meterCost(inputTok, outputTok int64) float64 {
	return float64(inputTok)/1_000_000*c.inPrice + float64(outputTok)/1_000_000*c.outPrice
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format (us.anthropic.{model}-v1:0).
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}
