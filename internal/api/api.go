package api

import (
	"go.uber.org/zap"

	"consignment-api/internal/config"
	"consignment-api/internal/job"
	"consignment-api/internal/status"
)

type API struct {
	Job     *job.Service
	Tracker *status.Tracker
	Cfg     *config.Config
	Log     *zap.Logger
}

func NewAPI(jobService *job.Service, tracker *status.Tracker, cfg *config.Config, log *zap.Logger) *API {
	return &API{
		Job:     jobService,
		Tracker: tracker,
		Cfg:     cfg,
		Log:     log,
	}
}
