// Package bodsrest provides REST API utilities with CORS support and common middleware.
package bodsrest

import (
	"fmt"
	"net/http"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

func Middlewares(service bodscli.Service, routes chi.Router) chi.Router {
	routes.Use(
		withCORS(),
		withLogger(bodscli.Logger(service)),
		middleware.Recoverer,
	)
	return routes
}

func Webserver(service bodscli.Service, routes chi.Router) error {
	logger := bodscli.Logger(service)

	if bodscli.CommonOpts.Console {
		logger.Info().Int("port", bodscli.CommonOpts.Port).Msg("starting http server")
		addr := fmt.Sprintf(":%v", bodscli.CommonOpts.Port)
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, bodscli.CommonOpts.Env))
	return nil
}

func withCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.WithContext(req.Context())
			req = req.WithContext(ctx)
			handler.ServeHTTP(w, req)
		})
	}
}
