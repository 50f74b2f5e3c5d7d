// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

// The catalog service exposes three product databases and a protected user
// database through the dynamic REST dispatcher. It reproduces a small
// multi-database catalog: products in db1, animals in db2, movies in db3,
// and user accounts pinned to the default database.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"net/http"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/access"
	"github.com/dynrest-tech/dynrest/core/backend"
	"github.com/dynrest-tech/dynrest/core/csql"
	"github.com/dynrest-tech/dynrest/core/events"
	"github.com/dynrest-tech/dynrest/core/logger"
	"github.com/dynrest-tech/dynrest/core/metrics"
)

var configurationJSON string = `{
	"entities": [
		{
			"name": "category",
			"database": "db1",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "description", "type": "text"}
			]
		},
		{
			"name": "product",
			"database": "db1",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "description", "type": "text"},
				{"name": "price", "type": "decimal", "required": true},
				{"name": "category", "type": "foreign-key", "references": "category", "required": true}
			]
		},
		{
			"name": "species",
			"database": "db2",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "description", "type": "text"}
			]
		},
		{
			"name": "breed",
			"database": "db2",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "species", "type": "foreign-key", "references": "species", "required": true},
				{"name": "description", "type": "text"}
			]
		},
		{
			"name": "animal",
			"database": "db2",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "age", "type": "int", "required": true},
				{"name": "breed", "type": "foreign-key", "references": "breed", "nullable": true},
				{"name": "description", "type": "text"}
			]
		},
		{
			"name": "genre",
			"database": "db3",
			"fields": [
				{"name": "name", "type": "string", "required": true},
				{"name": "description", "type": "text"}
			]
		},
		{
			"name": "movie",
			"database": "db3",
			"fields": [
				{"name": "title", "type": "string", "required": true},
				{"name": "description", "type": "text"},
				{"name": "release_date", "type": "date", "required": true},
				{"name": "genre", "type": "foreign-key", "references": "genre", "required": true}
			]
		},
		{
			"name": "user",
			"database": "default",
			"protected": true,
			"fields": [
				{"name": "username", "type": "string", "required": true},
				{"name": "password", "type": "string", "required": true, "write_only": true},
				{"name": "email", "type": "string"}
			]
		}
	]
}`

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
type Service struct {
	Postgres     string `env:"POSTGRES,required" description:"the connection string for the Postgres DB"`
	JwtSecret    string `env:"JWT_SECRET,required" description:"shared secret for signing and verifying tokens"`
	KafkaBrokers string `env:"KAFKA_BROKERS,optional" description:"comma separated kafka brokers for change notifications"`
	KafkaTopic   string `env:"KAFKA_TOPIC,optional,default=catalog-events" description:"kafka topic for change notifications"`
	Port         string `env:"PORT,optional,default=3000" description:"port to listen on"`
	LogLevel     string `env:"LOG_LEVEL,optional,default=info" description:"the level used for logger, can be debug, warning, info, error"`
}

func main() {
	seedFlag := flag.Bool("seed", false, "populate the databases with sample data and exit")
	flag.Parse()

	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.Init(level)

	pool := csql.NewPool(map[string]*csql.DB{
		"default": csql.MustOpenWithSchema(service.Postgres, "default"),
		"db1":     csql.MustOpenWithSchema(service.Postgres, "db1"),
		"db2":     csql.MustOpenWithSchema(service.Postgres, "db2"),
		"db3":     csql.MustOpenWithSchema(service.Postgres, "db3"),
	})
	defer pool.Close()

	router := mux.NewRouter()
	logger.AddRequestID(router)
	metrics.Instrument(router)
	router.Use(access.NewJwtMiddleware(&access.JwtMiddlewareBuilder{
		Secret: []byte(service.JwtSecret),
	}))

	var notifier core.Notifier
	if service.KafkaBrokers != "" {
		kafkaNotifier := events.NewKafkaNotifier(splitBrokers(service.KafkaBrokers), service.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	// token and metrics routes come first, the dynamic routes match any
	// two-segment path
	access.HandleTokenRoutes(&access.TokenAPIBuilder{
		Secret:       []byte(service.JwtSecret),
		Router:       router,
		Authenticate: authenticateAgainstUserTable(pool),
	})
	router.Handle("/metrics/", metrics.Handler()).Methods(http.MethodGet)

	backend.MustNew(&backend.Builder{
		Config:               configurationJSON,
		Pool:                 pool,
		DefaultDatabase:      "default",
		Router:               router,
		Notifier:             notifier,
		AuthorizationEnabled: true,
		UpdateSchema:         true,
	})

	if *seedFlag {
		if err := seed(router); err != nil {
			logger.Default().WithError(err).Fatal("cannot seed databases")
		}
		logger.Default().Info("databases seeded")
		return
	}

	logger.Default().Infof("listen on port :%s", service.Port)
	logger.Default().Fatal(http.ListenAndServe(":"+service.Port,
		handlers.CORS(
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE"}),
		)(router)))
}

// authenticateAgainstUserTable verifies credentials against the user table in
// the default database. Passwords are stored as hex encoded sha256 digests.
func authenticateAgainstUserTable(pool *csql.Pool) func(ctx context.Context, username, password string) (string, bool) {
	return func(ctx context.Context, username, password string) (string, bool) {
		db, err := pool.Bind("default")
		if err != nil {
			return "", false
		}
		var stored string
		err = db.QueryRowContext(ctx,
			`SELECT password FROM "`+db.Schema+`"."user" WHERE username = $1;`,
			username).Scan(&stored)
		if err != nil {
			return "", false
		}
		if stored != hashPassword(password) {
			return "", false
		}
		return username, true
	}
}

func hashPassword(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}

func splitBrokers(brokers string) []string {
	var result []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
