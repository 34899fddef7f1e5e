package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/core/course"
	"github.com/edecs/elearn/storage/tree"
)

// States of the per-(identity, course) walk-through. Nothing here is
// persisted mid-flight: abandoning an engine before Submit discards all of
// it, and only a successful Submit is durable.
const (
	StateLoading    = "loading"
	StateReady      = "ready"
	StateInProgress = "in_progress"
	StateSubmitted  = "submitted"
	StateError      = "error"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrNotReady       = errors.New("course content not loaded")
	ErrNotLastStep    = errors.New("submit is only enabled on the last step")
	ErrSubmitFailed   = errors.New("submitting answers failed")
)

type (
	// Step pairs video[i] with question[i] purely by position; there is no
	// explicit link between the two collections. Only indexes present on
	// both sides form a step.
	Step struct {
		Video    course.Video
		Question course.Question
	}

	// Result is the terminal submission record for one (identity, course)
	// pair, overwritten on resubmission. WatchedVideos is a count of end
	// events, not a set of indexes: replays inflate it, by design of the
	// source system. No answer is ever compared to a correct key.
	Result struct {
		SelectedAnswers map[string]string `json:"selectedAnswers"`
		WatchedVideos   int               `json:"watchedVideos"`
	}

	// Engine drives one learner through one course. It assumes the caller
	// already checked enrollment; nothing here re-verifies the grant set.
	// Not safe for concurrent use: it models a single user's session.
	Engine struct {
		db      tree.Store
		courses *course.Repository

		uid      string
		courseID string

		state    string
		err      error
		steps    []Step
		idx      int
		selected map[string]string
		watched  int
	}
)

func NewEngine(db tree.Store, courses *course.Repository, uid, courseID string) *Engine {
	return &Engine{
		db:       db,
		courses:  courses,
		uid:      uid,
		courseID: courseID,
		state:    StateLoading,
		selected: make(map[string]string),
	}
}

func (e *Engine) State() string { return e.state }

// Err returns what moved the engine into StateError, if anything.
func (e *Engine) Err() error { return e.err }

// Steps returns the pairable steps: the overlapping prefix of the video
// and question sequences in store key order.
func (e *Engine) Steps() []Step { return e.steps }

func (e *Engine) CurrentIndex() int { return e.idx }

// WatchedVideos returns the running count of video end events.
func (e *Engine) WatchedVideos() int { return e.watched }

// SelectedAnswers returns the live answer mapping.
func (e *Engine) SelectedAnswers() map[string]string {
	snapshot := make(map[string]string, len(e.selected))
	for k, v := range e.selected {
		snapshot[k] = v
	}
	return snapshot
}

// Load fetches the course and builds the step sequence: Loading -> Ready,
// or Loading -> Error when the course is gone.
func (e *Engine) Load(ctx context.Context) error {
	if e.state != StateLoading {
		return errors.Errorf("cannot load from state %q", e.state)
	}

	crs, err := e.courses.Get(ctx, e.courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			e.fail(ErrCourseNotFound)
			return ErrCourseNotFound
		}
		e.fail(err)
		return err
	}

	videos := crs.VideosInKeyOrder()
	questions := crs.QuestionsInKeyOrder()

	// zip by position; the shorter side wins
	n := len(videos)
	if len(questions) < n {
		n = len(questions)
	}
	steps := make([]Step, n)
	for i := 0; i < n; i++ {
		steps[i] = Step{Video: videos[i], Question: questions[i]}
	}

	e.steps = steps
	e.state = StateReady
	return nil
}

// Start begins the walk-through: Ready -> InProgress.
func (e *Engine) Start() error {
	if e.state != StateReady {
		return ErrNotReady
	}
	e.state = StateInProgress
	return nil
}

// SelectAnswer records the chosen option for a question, overwriting any
// prior choice. The option key is not validated against the four known
// keys; selection is a pure state update and always allowed.
func (e *Engine) SelectAnswer(questionID, optionKey string) {
	e.selected[questionID] = optionKey
}

// HandleVideoEnd bumps the watched counter. Calls are not deduplicated by
// video: a replayed video counts again.
func (e *Engine) HandleVideoEnd() {
	e.watched++
}

// Next advances the step index, saturating at the last step.
func (e *Engine) Next() {
	if e.idx < len(e.steps)-1 {
		e.idx++
	}
}

// Previous moves the step index back, saturating at zero.
func (e *Engine) Previous() {
	if e.idx > 0 {
		e.idx--
	}
}

// Submit writes the terminal Result for this (identity, course) pair and
// moves to Submitted. It is only enabled on the last step. A write failure
// surfaces as ErrSubmitFailed and leaves the engine InProgress so the
// learner may retry. No grading happens: this is capture only.
func (e *Engine) Submit(ctx context.Context) error {
	if e.state != StateInProgress {
		return ErrNotReady
	}
	if e.idx < len(e.steps)-1 {
		return ErrNotLastStep
	}

	result := Result{
		SelectedAnswers: e.SelectedAnswers(),
		WatchedVideos:   e.watched,
	}
	path := tree.Join("users", e.uid, "results", e.courseID)
	if err := e.db.Write(ctx, path, result); err != nil {
		return errors.Wrap(ErrSubmitFailed, err.Error())
	}

	e.state = StateSubmitted
	return nil
}

func (e *Engine) fail(err error) {
	e.state = StateError
	e.err = err
}
