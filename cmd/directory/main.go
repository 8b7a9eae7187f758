package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/policonsole/internal/directory/app"
	"github.com/dmitrijs2005/policonsole/internal/directory/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
