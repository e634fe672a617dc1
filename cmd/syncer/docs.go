package main

//go:generate swag init -g cmd/syncer/main.go -o docs

// @title           Athena Cycle Syncer API
// @version         0.1.0
// @description     Incremental GitHub and Jira mirroring into Postgres.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
