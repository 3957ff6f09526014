package continuation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// InvokeAPI is the subset of the Lambda client the trigger uses
type InvokeAPI interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// LambdaTrigger continues the import by asynchronously invoking this same
// function with the resume payload.
type LambdaTrigger struct {
	api          InvokeAPI
	functionName string
	logger       *zap.Logger
}

func NewLambdaTrigger(api InvokeAPI, functionName string, logger *zap.Logger) *LambdaTrigger {
	return &LambdaTrigger{api: api, functionName: functionName, logger: logger}
}

func (t *LambdaTrigger) Continue(ctx context.Context, req models.ImportRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling continuation payload: %w", err)
	}

	_, err = t.api.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(t.functionName),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoking %s: %w", t.functionName, err)
	}

	t.logger.Info("Invoked continuation to finish processing the file",
		zap.String("function", t.functionName),
		zap.String("bucket", req.Bucket),
		zap.String("key", req.Key),
		zap.Int64("byte_offset", req.Cursor.ByteOffset),
		zap.Int64("line", req.Cursor.Line),
	)
	return nil
}
