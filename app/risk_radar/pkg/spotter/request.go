package spotter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const maxTopicLen = 500

// ValidationError 请求格式错误，在任何外部调用之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateRequest 校验深度调研请求
func ValidateRequest(req model.ResearchRequest) error {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return &ValidationError{Field: "topic", Message: "字段 'topic' 的值不能为空"}
	}
	if utf8.RuneCountInString(topic) > maxTopicLen {
		return &ValidationError{Field: "topic", Message: fmt.Sprintf("topic字段长度必须在1-%d个字符之间", maxTopicLen)}
	}
	switch req.Priority {
	case "", "low", "medium", "high":
	default:
		return &ValidationError{Field: "priority", Message: "priority字段值必须是: low, medium 或 high"}
	}
	return nil
}

// HandleRequest 处理外部调研请求并返回标准化响应
func (s *Spotter) HandleRequest(ctx context.Context, req model.ResearchRequest) (resp *model.ResearchResponse) {
	start := s.now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	meta := model.ResponseMetadata{RequestID: req.RequestID, Timestamp: start.Format(model.TimeLayout)}
	logger.Log.Infof("收到调研请求，请求ID: %s", req.RequestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("处理调研请求时发生未预期错误，请求ID: %s，错误: %v", req.RequestID, r)
			meta.ProcessingTime = seconds(s.now().Sub(start))
			resp = errorResponse(meta, model.CodeInternal, "处理请求时发生内部错误")
		}
	}()

	if err := ValidateRequest(req); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			logger.Log.Warnf("请求验证失败，请求ID: %s，错误: %s", req.RequestID, ve.Message)
		}
		return errorResponse(meta, model.CodeValidation, err.Error())
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	logger.Log.Infof("处理风险话题: %s (优先级: %s)，请求ID: %s", req.Topic, req.Priority, req.RequestID)

	result := s.ProcessTopic(ctx, req)
	meta.ProcessingTime = seconds(s.now().Sub(start))
	meta.Timestamp = result.Timestamp
	meta.ReportPath = result.ReportPath
	meta.Statistics = result.Statistics

	if result.Status != model.StatusSuccess {
		logger.Log.Errorf("话题 '%s' 分析失败: %s，请求ID: %s", req.Topic, result.Error, req.RequestID)
		return errorResponse(meta, model.CodeProcessing, result.Error)
	}
	logger.Log.Infof("话题 '%s' 分析成功，风险等级: %s，请求ID: %s", req.Topic, result.Report.RiskAssessment.Level, req.RequestID)
	return &model.ResearchResponse{Status: model.StatusSuccess, Data: result, Metadata: meta}
}

func errorResponse(meta model.ResponseMetadata, code, msg string) *model.ResearchResponse {
	return &model.ResearchResponse{
		Status:   model.StatusError,
		Metadata: meta,
		Error:    &model.ResponseError{Code: code, Message: msg},
	}
}
