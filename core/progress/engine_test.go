package progress_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/core/progress"
	"github.com/edecs/elearn/storage/tree"
	testutil "github.com/edecs/elearn/tests"
)

func loadedEngine(t *testing.T, deps *testutil.Deps, videos, questions int) *progress.Engine {
	t.Helper()
	id := testutil.CreateCourse(t, deps.CourseRepo, "Safety", videos, questions)
	eng := progress.NewEngine(deps.Tree, deps.CourseRepo, "uid-1", id)
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return eng
}

func TestEngineLoad(t *testing.T) {
	deps := testutil.NewDeps(t)

	eng := loadedEngine(t, deps, 3, 3)
	if eng.State() != progress.StateReady {
		t.Errorf("state = %q, want ready", eng.State())
	}
	if len(eng.Steps()) != 3 {
		t.Errorf("steps = %d, want 3", len(eng.Steps()))
	}
}

func TestEngineLoadMissingCourse(t *testing.T) {
	deps := testutil.NewDeps(t)

	eng := progress.NewEngine(deps.Tree, deps.CourseRepo, "uid-1", "gone")
	if err := eng.Load(context.Background()); err != progress.ErrCourseNotFound {
		t.Fatalf("Load() error = %v, want ErrCourseNotFound", err)
	}
	if eng.State() != progress.StateError || eng.Err() != progress.ErrCourseNotFound {
		t.Errorf("state = %q, err = %v", eng.State(), eng.Err())
	}
	if err := eng.Start(); err != progress.ErrNotReady {
		t.Errorf("Start() from error state = %v, want ErrNotReady", err)
	}
}

func TestEnginePairsShorterSide(t *testing.T) {
	tests := []struct {
		name      string
		videos    int
		questions int
		wantSteps int
	}{
		{name: "equal", videos: 2, questions: 2, wantSteps: 2},
		{name: "more videos", videos: 4, questions: 2, wantSteps: 2},
		{name: "more questions", videos: 1, questions: 3, wantSteps: 1},
		{name: "no questions", videos: 3, questions: 0, wantSteps: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testutil.NewDeps(t)
			eng := loadedEngine(t, deps, tt.videos, tt.questions)
			if got := len(eng.Steps()); got != tt.wantSteps {
				t.Errorf("steps = %d, want %d", got, tt.wantSteps)
			}
		})
	}
}

func TestEngineNavigationSaturates(t *testing.T) {
	deps := testutil.NewDeps(t)
	eng := loadedEngine(t, deps, 3, 3)

	eng.Previous()
	if eng.CurrentIndex() != 0 {
		t.Errorf("Previous() at first step moved to %d", eng.CurrentIndex())
	}
	for i := 0; i < 10; i++ {
		eng.Next()
	}
	if eng.CurrentIndex() != 2 {
		t.Errorf("Next() past last step moved to %d", eng.CurrentIndex())
	}
	eng.Previous()
	if eng.CurrentIndex() != 1 {
		t.Errorf("Previous() = %d, want 1", eng.CurrentIndex())
	}
}

func TestEngineWatchedVideosCountsReplays(t *testing.T) {
	deps := testutil.NewDeps(t)
	eng := loadedEngine(t, deps, 2, 2)

	eng.HandleVideoEnd()
	eng.HandleVideoEnd()
	eng.HandleVideoEnd()
	if eng.WatchedVideos() != 3 {
		t.Errorf("WatchedVideos() = %d, want 3 (replays count again)", eng.WatchedVideos())
	}
}

func TestEngineSelectAnswerOverwrites(t *testing.T) {
	deps := testutil.NewDeps(t)
	eng := loadedEngine(t, deps, 1, 1)

	eng.SelectAnswer("q1", "option1")
	eng.SelectAnswer("q1", "option3")
	eng.SelectAnswer("q2", "anything") // keys are not validated

	want := map[string]string{"q1": "option3", "q2": "anything"}
	if got := eng.SelectedAnswers(); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedAnswers() = %v, want %v", got, want)
	}
}

func TestEngineSubmit(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()
	eng := loadedEngine(t, deps, 2, 2)

	if err := eng.Submit(ctx); err != progress.ErrNotReady {
		t.Fatalf("Submit() before Start error = %v, want ErrNotReady", err)
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := eng.Submit(ctx); err != progress.ErrNotLastStep {
		t.Fatalf("Submit() on first step error = %v, want ErrNotLastStep", err)
	}

	eng.SelectAnswer(eng.Steps()[0].Question.ID, "option2")
	eng.HandleVideoEnd()
	eng.Next()
	eng.SelectAnswer(eng.Steps()[1].Question.ID, "option4")
	eng.HandleVideoEnd()

	if err := eng.Submit(ctx); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if eng.State() != progress.StateSubmitted {
		t.Errorf("state = %q, want submitted", eng.State())
	}

	var result progress.Result
	crs, err := deps.CourseRepo.QueryAll(ctx)
	if err != nil || len(crs) != 1 {
		t.Fatalf("QueryAll() = %v, %v", crs, err)
	}
	if err := deps.Tree.Read(ctx, tree.Join("users", "uid-1", "results", crs[0].ID), &result); err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if result.WatchedVideos != 2 || len(result.SelectedAnswers) != 2 {
		t.Errorf("result = %+v", result)
	}
}

// failingTree rejects every write, for exercising submit retry.
type failingTree struct {
	tree.Store
}

func (ft failingTree) Write(ctx context.Context, path string, value interface{}) error {
	return errors.New("disconnected")
}

func TestEngineSubmitFailureLeavesInProgress(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()

	id := testutil.CreateCourse(t, deps.CourseRepo, "Safety", 1, 1)
	eng := progress.NewEngine(failingTree{Store: deps.Tree}, deps.CourseRepo, "uid-1", id)
	if err := eng.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := eng.Submit(ctx); errors.Cause(err) != progress.ErrSubmitFailed {
		t.Fatalf("Submit() error = %v, want ErrSubmitFailed", err)
	}
	if eng.State() != progress.StateInProgress {
		t.Errorf("state after failed submit = %q, want in_progress so the learner can retry", eng.State())
	}
}

func TestEngineSubmitOnEmptyCourse(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()

	eng := loadedEngine(t, deps, 0, 0)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// no steps means index 0 already is the end; submit is allowed
	if err := eng.Submit(ctx); err != nil {
		t.Errorf("Submit() on empty course error = %v", err)
	}
}
