package biz

import (
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Checkin *usecase.CheckinUsecase
	Export  *usecase.ExportUsecase
}
