package dto

import "ai-redteam-be/internal/entity"

type AnalyzeRequest struct {
	Message string `json:"message" validate:"required"`
	Mode    string `json:"mode,omitempty"`
}

type AnalysisResult struct {
	AttemptType        string   `json:"attempt_type"`
	SuccessProbability float64  `json:"success_probability"`
	RiskLevel          string   `json:"risk_level"` // "low", "medium", "high" or "critical"
	DetectedTechniques []string `json:"detected_techniques"`
	Recommendations    []string `json:"recommendations"`
	Confidence         float64  `json:"confidence"`
}

type AnalysisResponse struct {
	Analysis AnalysisResult `json:"analysis"`
}

type AttemptsResponse struct {
	Attempts []entity.AttemptRecord `json:"attempts"`
	Count    int                    `json:"count"`
}
