package fundraising

import (
	"net/http"
	"time"

	"bantudesa/pkg/access"
	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type Handler struct {
	service *Service
	query   *CampaignQuery
	tokens  *access.Tokens
}

func NewHandler(service *Service, query *CampaignQuery, tokens *access.Tokens) *Handler {
	return &Handler{service: service, query: query, tokens: tokens}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	optional := middleware.Authenticate(h.tokens, false)
	required := middleware.Authenticate(h.tokens, true)

	activities := r.Group("/activities")
	activities.GET("", h.ListActivities)
	activities.GET("/:id", h.GetActivity)
	activities.POST("", required, h.CreateActivity)
	activities.PUT("/:id", required, h.UpdateActivity)
	activities.POST("/:id/cancel", required, h.CancelActivity)
	activities.DELETE("/:id", required, h.DeleteActivity)
	activities.POST("/:id/donations", optional, h.SubmitDonation)

	donations := r.Group("/donations")
	donations.GET("/pending", required, h.ListPending)
	donations.PUT("/:id/verify", required, h.VerifyDonation)
	donations.GET("/history", required, h.DonationHistory)
	donations.GET("/reference/:reference", h.TrackDonation)
}

type activityRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	PhotoURL     *string         `json:"photo_url"`
	QrisURL      *string         `json:"qris_url"`
	TargetAmount *int64          `json:"target_amount"`
	StartDate    *time.Time      `json:"start_date"`
	EndDate      *time.Time      `json:"end_date"`
	Schedule     *datatypes.JSON `json:"schedule"`
	Requirements *datatypes.JSON `json:"requirements"`
	Gallery      *datatypes.JSON `json:"gallery"`
}

func (r activityRequest) create() CreateActivityInput {
	var in CreateActivityInput
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.PhotoURL != nil {
		in.PhotoURL = *r.PhotoURL
	}
	if r.QrisURL != nil {
		in.QrisURL = *r.QrisURL
	}
	if r.TargetAmount != nil {
		in.TargetAmount = *r.TargetAmount
	}
	if r.StartDate != nil {
		in.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		in.EndDate = *r.EndDate
	}
	if r.Schedule != nil {
		in.Schedule = *r.Schedule
	}
	if r.Requirements != nil {
		in.Requirements = *r.Requirements
	}
	if r.Gallery != nil {
		in.Gallery = *r.Gallery
	}
	return in
}

func (r activityRequest) update() UpdateActivityInput {
	return UpdateActivityInput{
		Title:        r.Title,
		Description:  r.Description,
		PhotoURL:     r.PhotoURL,
		QrisURL:      r.QrisURL,
		TargetAmount: r.TargetAmount,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Schedule:     r.Schedule,
		Requirements: r.Requirements,
		Gallery:      r.Gallery,
	}
}

type submitDonationRequest struct {
	Amount      int64  `json:"amount"`
	ProofRef    string `json:"proof_ref"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"is_anonymous"`
	DonorName   string `json:"donor_name"`
	DonorEmail  string `json:"donor_email" binding:"omitempty,email"`
	DonorPhone  string `json:"donor_phone"`
}

type verifyRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *Handler) ListActivities(c *gin.Context) {
	var filter ActivityFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid query", err))
		return
	}

	items, info, err := h.query.ListActivities(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (h *Handler) GetActivity(c *gin.Context) {
	detail, err := h.query.GetActivityDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (h *Handler) CreateActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	activity, err := h.service.CreateActivity(ctx, access.FromContext(ctx), req.create())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": activity})
}

func (h *Handler) UpdateActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	activity, err := h.service.UpdateActivity(ctx, c.Param("id"), access.FromContext(ctx), req.update())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": activity})
}

func (h *Handler) CancelActivity(c *gin.Context) {
	ctx := c.Request.Context()
	activity, err := h.service.CancelActivity(ctx, c.Param("id"), access.FromContext(ctx))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": activity})
}

func (h *Handler) DeleteActivity(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.service.DeleteActivity(ctx, c.Param("id"), access.FromContext(ctx)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SubmitDonation(c *gin.Context) {
	var req submitDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	donation, err := h.service.SubmitDonation(ctx, c.Param("id"), access.FromContext(ctx), SubmitDonationInput{
		Amount:      req.Amount,
		ProofRef:    req.ProofRef,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		DonorPhone:  req.DonorPhone,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": donation})
}

func (h *Handler) ListPending(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid pagination", err))
		return
	}

	ctx := c.Request.Context()
	items, info, err := h.service.ListPending(ctx, access.FromContext(ctx), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (h *Handler) VerifyDonation(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	// an unknown action is rejected by the service once the caller is
	// known to be allowed to verify
	decision, _ := ParseDecision(req.Action)

	ctx := c.Request.Context()
	donation, err := h.service.VerifyDonation(ctx, c.Param("id"), access.FromContext(ctx), decision, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": donation})
}

func (h *Handler) DonationHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid pagination", err))
		return
	}

	ctx := c.Request.Context()
	items, info, err := h.service.DonationHistory(ctx, access.FromContext(ctx), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (h *Handler) TrackDonation(c *gin.Context) {
	receipt, err := h.service.TrackDonation(c.Request.Context(), c.Param("reference"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": receipt})
}
