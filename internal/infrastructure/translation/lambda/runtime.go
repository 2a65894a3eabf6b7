// Package lambda hosts the local translation model behind an AWS Lambda function.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

const warmupSource = "warmup"

// Invoker is the slice of the Lambda API the runtime needs.
type Invoker interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

type translateRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []string `json:"translations"`
	Error        string   `json:"error,omitempty"`
}

type Runtime struct {
	client       Invoker
	functionName string
	executor     *resilience.Executor
}

func New(ctx context.Context, functionName, region string, executor *resilience.Executor) (*Runtime, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(awslambda.NewFromConfig(cfg), functionName, executor), nil
}

func NewWithClient(client Invoker, functionName string, executor *resilience.Executor) *Runtime {
	return &Runtime{client: client, functionName: functionName, executor: executor}
}

func (r *Runtime) Name() string {
	return "lambda:" + r.functionName
}

// Load sends a warmup event so the function has the model in memory before real traffic.
func (r *Runtime) Load(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"source": warmupSource})
	if err != nil {
		return fmt.Errorf("marshal warmup: %w", err)
	}
	if _, err := r.invoke(ctx, "warmup", payload); err != nil {
		return err
	}
	return nil
}

func (r *Runtime) Translate(ctx context.Context, texts []string, source, target domain.ProviderCode) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	payload, err := json.Marshal(translateRequest{
		Texts:      texts,
		SourceLang: string(source),
		TargetLang: string(target),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal translate request: %w", err)
	}

	raw, err := r.invoke(ctx, "translate", payload)
	if err != nil {
		return nil, err
	}

	var resp translateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse translate response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}
	if len(resp.Translations) != len(texts) {
		return nil, fmt.Errorf("translator returned %d translations for %d inputs", len(resp.Translations), len(texts))
	}
	return resp.Translations, nil
}

func (r *Runtime) invoke(ctx context.Context, operation string, payload []byte) ([]byte, error) {
	call := func(callCtx context.Context) ([]byte, error) {
		out, err := r.client.Invoke(callCtx, &awslambda.InvokeInput{
			FunctionName: aws.String(r.functionName),
			Payload:      payload,
		})
		if err != nil {
			return nil, fmt.Errorf("invoke %s: %w", r.functionName, err)
		}
		if out.FunctionError != nil {
			return nil, fmt.Errorf("lambda error: %s", aws.ToString(out.FunctionError))
		}
		return out.Payload, nil
	}

	if r.executor == nil {
		return call(ctx)
	}
	raw, err := resilience.Do(ctx, r.executor, "lambda."+operation, call, resilience.ClassifyTransport)
	return raw, resilience.WrapTemporary("lambda "+operation, err, resilience.ClassifyTransport)
}
