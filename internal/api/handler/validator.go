package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SubSh2004/CampusZon-sub000/internal/service"
)

// RegisterValidators 注册自定义校验标签，需在路由初始化前调用
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("campus_action", validModerationAction); err != nil {
		return err
	}
	return v.RegisterValidation("booking_decision", validBookingDecision)
}

func validModerationAction(fl validator.FieldLevel) bool {
	switch service.ModerationAction(fl.Field().String()) {
	case service.ActionKeep, service.ActionWarn, service.ActionRemove:
		return true
	}
	return false
}

func validBookingDecision(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == decisionAccepted || s == decisionRejected
}
