// Command inference-lambda 把推理代理部署为 AWS Lambda 函数。
//
// 环境变量：
//
//	ENDPOINT_NAME  SageMaker 端点名（必填）
//	ENDPOINT_REGION  端点区域，默认 us-east-1
//	LOG_LEVEL      日志级别，默认 info
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/rushteam/winekit/pkg/logging"
	"github.com/rushteam/winekit/proxy"
	"github.com/rushteam/winekit/service"
)

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger, err := logging.New(level, "json", os.Stdout)
	if err != nil {
		panic(err)
	}

	region := os.Getenv("ENDPOINT_REGION")
	if region == "" {
		region = service.DefaultRegion
	}
	inv, err := service.NewSageMakerInvoker(context.Background(), os.Getenv("ENDPOINT_NAME"), region)
	if err != nil {
		logger.Error("init invoker", "error", err)
		os.Exit(1)
	}

	h := proxy.NewHandler(inv, logger)
	lambda.Start(h.Handle)
}
