// Package bodscron provides utilities for building scheduled Lambda functions.
package bodscron

import (
	"context"
	"encoding/json"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service bodscli.Service
	logger  zerolog.Logger

	runOnce RunCallback
}

func NewHandler(
	service bodscli.Service,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  bodscli.Logger(service),
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	h.logger.Info().Msg("running scheduled task")
	ctx = h.logger.WithContext(ctx)
	return h.runOnce(ctx)
}

func (h *Handler) Start() error {
	switch {
	case bodscli.CommonOpts.Console:
		ctx := h.logger.WithContext(context.Background())
		return h.runOnce(ctx)

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
