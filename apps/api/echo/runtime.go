package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

var interactionOrderings = []string{"interaction_id", "result", "updated_at", "weighting"}

type runtimeApi struct {
	svc      scorm.ServiceInterface
	validate *validator.Validate
}

func registerRuntimeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc scorm.ServiceInterface, validate *validator.Validate) {
	api := runtimeApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/runtime", jwt)
	rg.POST("/commit", api.commit)

	ag := g.Group("/attempts/:id", jwt, attemptIDMiddleware)
	ag.GET("", api.retrieveAttempt)
	ag.GET("/interactions", api.queryInteractions)
}

// Handlers

func (api *runtimeApi) commit(ctx echo.Context) error {
	learner, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	var data CommitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Commit(ctx.Request().Context(), learner, data.AttemptID)
	if err != nil {
		return errors.Wrap(err, "committing attempt")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *runtimeApi) retrieveAttempt(ctx echo.Context) error {
	learner, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	attempt, err := api.svc.GetAttempt(ctx.Request().Context(), learner, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt")
	}
	return ctx.JSON(http.StatusOK, attempt)
}

func (api *runtimeApi) queryInteractions(ctx echo.Context) error {
	learner, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	filter := scorm.InteractionFilter{AttemptID: ctx.Param("id")}
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []scorm.Interaction{})
	}
	filter.AttemptID = ctx.Param("id")
	ordering := new(Ordering)
	ordering.Bind(ctx, interactionOrderings...)

	interactions, err := api.svc.QueryInteractions(ctx.Request().Context(), learner, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying interactions")
	}
	if interactions == nil {
		interactions = []scorm.Interaction{}
	}
	return ctx.JSON(http.StatusOK, interactions)
}

// attemptIDMiddleware rejects malformed attempt ids before they reach storage.
func attemptIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := uuid.Parse(ctx.Param("id")); err != nil {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

type CommitRequest struct {
	AttemptID string `json:"attempt_id" validate:"required,notblank"`
}

func (cr *CommitRequest) Validate(validate *validator.Validate) error {
	cr.AttemptID = core.CleanString(cr.AttemptID)
	return validate.Struct(cr)
}
