package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/braze"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/config"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/continuation"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/logger"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/pipeline"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/source"
)

func main() {
	if err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Configuration errors abort before any I/O, with no continuation
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	opener := source.NewS3Opener(s3.NewFromConfig(awsCfg), logger.Logger)
	trigger := continuation.NewLambdaTrigger(
		awslambda.NewFromConfig(awsCfg),
		os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		logger.Logger,
	)
	client := braze.NewClient(cfg.Braze, nil, logger.Logger)
	pipe := pipeline.New(cfg.Pipeline, opener, client, trigger, logger.Logger)

	lambda.Start(func(ctx context.Context, raw json.RawMessage) (models.ImportResult, error) {
		req, err := models.ParseImportRequest(raw)
		if err != nil {
			logger.Error("Invalid invocation payload", zap.Error(err))
			return models.ImportResult{}, err
		}
		return pipe.Run(ctx, req)
	})
}
