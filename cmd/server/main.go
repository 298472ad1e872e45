package main

import (
	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/mines_solver/server"
)

type config struct {
	Name     string `env:"SERVER_NAME" envDefault:"Mines server"`
	Port     uint16 `env:"PORT" envDefault:"42069"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	log := logrus.New()
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	srv, err := server.SpawnServer(cfg.Name, cfg.Port)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Infof("%s started at port %d", srv.Name, srv.Port)
	select {}
}
