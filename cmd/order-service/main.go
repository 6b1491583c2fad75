package main

import (
	"log"
	"os"

	"github.com/nodesandbox/event-bus-sample/cmd/order-service/app"
	"github.com/nodesandbox/event-bus-sample/configs"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	if err := app.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
