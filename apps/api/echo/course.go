package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/course"
	"github.com/edecs/elearn/core/identity"
	"github.com/edecs/elearn/core/progress"
)

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses", jwt)

	// learner endpoints; listings are filtered down to the grant set
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/submit", api.submit)

	// admin endpoints; an empty-prefix subgroup would shadow the learner
	// routes above, so the middleware is attached per route
	admin := adminMiddleware()
	cg.POST("", api.create, admin)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
	cg.POST("/:id/videos", api.addVideo, admin)
	cg.POST("/:id/questions", api.addQuestion, admin)
	cg.PUT("/:id/questions/:qid", api.updateQuestion, admin)
	cg.DELETE("/:id/questions/:qid", api.deleteQuestion, admin)
}

// grants returns the caller's course grant set; admins see everything and
// get (nil, true).
func (api *courseApi) grants(ctx echo.Context) ([]string, bool, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return nil, true, nil
	}

	rec, err := api.deps.AccountSvc.Roles().Get(ctx.Request().Context(), identity.Key(claims.Email))
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return []string{}, false, nil
		}
		return nil, false, errors.Wrap(err, "reading role record")
	}
	return rec.Courses, false, nil
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.deps.CourseRepo.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}

	grants, isAdmin, err := api.grants(ctx)
	if err != nil {
		return err
	}
	if !isAdmin {
		// grant IDs pointing at deleted courses drop out silently here
		courses = course.FilterByGrants(courses, grants)
	}

	resp := make([]CourseResponse, 0, len(courses))
	for _, crs := range courses {
		resp = append(resp, newCourseResponse(crs))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	grants, isAdmin, err := api.grants(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if !isAdmin && !contains(grants, id) {
		return errHttpNotFound
	}

	crs, err := api.deps.CourseRepo.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrapf(err, "reading course %q", id)
	}
	return ctx.JSON(http.StatusOK, newCourseResponse(crs))
}

// submit replays the client's walk-through into a progress engine and drives
// it to its terminal submit, persisting the result record.
func (api *courseApi) submit(ctx echo.Context) error {
	grants, isAdmin, err := api.grants(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if !isAdmin && !contains(grants, id) {
		return errHttpNotFound
	}

	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	c := ctx.Request().Context()
	eng := progress.NewEngine(api.deps.Tree, api.deps.CourseRepo, claims.Subject, id)
	if err := eng.Load(c); err != nil {
		if errors.Cause(err) == progress.ErrCourseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading course content")
	}
	if err := eng.Start(); err != nil {
		return errors.Wrap(err, "starting walk-through")
	}
	for questionID, optionKey := range data.SelectedAnswers {
		eng.SelectAnswer(questionID, optionKey)
	}
	for i := 0; i < data.WatchedVideos; i++ {
		eng.HandleVideoEnd()
	}
	for i := 1; i < len(eng.Steps()); i++ {
		eng.Next()
	}

	if err := eng.Submit(c); err != nil {
		return errors.Wrap(err, "submitting answers")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Answers submitted."})
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c := ctx.Request().Context()
	id, err := api.deps.CourseRepo.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	crs, err := api.deps.CourseRepo.Get(c, id)
	if err != nil {
		return errors.Wrap(err, "reading created course")
	}
	return ctx.JSON(http.StatusCreated, newCourseResponse(crs))
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	id := ctx.Param("id")
	if err := api.deps.CourseRepo.Update(ctx.Request().Context(), id, data.Name, data.Description); err != nil {
		return errors.Wrapf(err, "updating course %q", id)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.deps.CourseRepo.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrapf(err, "deleting course %q", id)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addVideo(ctx echo.Context) error {
	var data AddVideoRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddVideoRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	id, err := api.deps.CourseRepo.AddVideo(ctx.Request().Context(), ctx.Param("id"), data.URL, data.Name)
	if err != nil {
		return errors.Wrap(err, "adding video")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *courseApi) addQuestion(ctx echo.Context) error {
	var data course.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	id, err := api.deps.CourseRepo.AddQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *courseApi) updateQuestion(ctx echo.Context) error {
	var data course.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}

	c := ctx.Request().Context()
	courseID, questionID := ctx.Param("id"), ctx.Param("qid")
	prev, err := api.deps.CourseRepo.GetQuestion(c, courseID, questionID)
	if err != nil {
		return errors.Wrapf(err, "reading question %q", questionID)
	}
	if err := api.deps.CourseRepo.UpdateQuestion(c, courseID, prev, data); err != nil {
		return errors.Wrapf(err, "updating question %q", questionID)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) deleteQuestion(ctx echo.Context) error {
	courseID, questionID := ctx.Param("id"), ctx.Param("qid")
	if err := api.deps.CourseRepo.DeleteQuestion(ctx.Request().Context(), courseID, questionID); err != nil {
		return errors.Wrapf(err, "deleting question %q", questionID)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	SubmitRequest struct {
		SelectedAnswers map[string]string `json:"selectedAnswers"`
		WatchedVideos   int               `json:"watchedVideos"`
	}

	AddVideoRequest struct {
		URL  string `json:"url" validate:"required,url"`
		Name string `json:"name" validate:"required"`
	}

	CreatedResponse struct {
		ID string `json:"id"`
	}

	CourseResponse struct {
		ID          string                     `json:"id"`
		Name        string                     `json:"name"`
		Description string                     `json:"description"`
		Videos      map[string]course.Video    `json:"videos"`
		Questions   map[string]course.Question `json:"questions"`
	}
)

func newCourseResponse(crs course.Course) CourseResponse {
	videos := crs.Videos
	if videos == nil {
		videos = map[string]course.Video{}
	}
	questions := crs.Questions
	if questions == nil {
		questions = map[string]course.Question{}
	}
	return CourseResponse{
		ID:          crs.ID,
		Name:        crs.Name,
		Description: crs.Description,
		Videos:      videos,
		Questions:   questions,
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
