package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"

	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/container"
)

var adapter *chiadapter.ChiLambda

// Generation workers run inside the function instance and only make progress
// while it is warm; long jobs belong on the serve command.
func init() {
	ctx := context.Background()
	c, err := container.New(ctx)
	if err != nil {
		config.Logger.WithError(err).Fatal("Failed to build container")
	}
	c.GenerationContainer.Manager.Start(ctx)

	r := chi.NewRouter()
	r.Mount("/", c.Router())
	adapter = chiadapter.New(r)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
