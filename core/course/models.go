package course

import (
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrQuestionNotFound = errors.New("question not found")
)

// AnswerKeys are the canonical option keys every question stores its four
// answers under.
var AnswerKeys = [4]string{"option1", "option2", "option3", "option4"}

type (
	// Course is a root-level entity: two descriptive fields plus nested
	// videos and questions keyed by store-generated push keys.
	Course struct {
		ID          string              `json:"-"`
		Name        string              `json:"name"`
		Description string              `json:"description"`
		Videos      map[string]Video    `json:"videos,omitempty"`
		Questions   map[string]Question `json:"questions,omitempty"`
	}

	// Video is a reference to an already-uploaded blob; the URL is opaque here.
	Video struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}

	// Question has no notion of a correct answer; answers are prompt text
	// keyed by option1..option4.
	Question struct {
		ID       string            `json:"-"`
		Question string            `json:"question"`
		Answers  map[string]string `json:"answers"`
	}
)

// VideosInKeyOrder returns the course's videos sorted by their store keys.
// Push keys generated by one client sort by creation time, so this is
// upload order in the common case, but callers must not rely on more than
// the store's native key order.
func (c Course) VideosInKeyOrder() []Video {
	keys := make([]string, 0, len(c.Videos))
	for k := range c.Videos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	videos := make([]Video, 0, len(keys))
	for _, k := range keys {
		videos = append(videos, c.Videos[k])
	}
	return videos
}

// QuestionsInKeyOrder returns the course's questions sorted by their store
// keys, with IDs filled in.
func (c Course) QuestionsInKeyOrder() []Question {
	keys := make([]string, 0, len(c.Questions))
	for k := range c.Questions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	questions := make([]Question, 0, len(keys))
	for _, k := range keys {
		q := c.Questions[k]
		q.ID = k
		questions = append(questions, q)
	}
	return questions
}

// FilterByGrants keeps the courses whose ID is in the grant set. Grant IDs
// pointing at deleted courses are simply skipped: dangling references are
// tolerated, never fatal.
func FilterByGrants(courses []Course, grants []string) []Course {
	granted := make(map[string]bool, len(grants))
	for _, id := range grants {
		granted[id] = true
	}
	kept := make([]Course, 0, len(courses))
	for _, c := range courses {
		if granted[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

// NewQuestion requires the prompt and all four answers to be filled; that
// is the only validation a question ever gets.
type NewQuestion struct {
	Question string    `json:"question" validate:"required"`
	Answers  [4]string `json:"answers" validate:"required"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nq); err != nil {
		return err
	}
	for _, ans := range nq.Answers {
		if ans == "" {
			return core.NewValidationError(errors.New("please fill in the question and all answers"))
		}
	}
	return nil
}

// UpdateQuestion has partial-update semantics: a blank prompt or answer
// slot falls back to the previously known value, merged client-side before
// the overwrite write.
type UpdateQuestion struct {
	Question string    `json:"question"`
	Answers  [4]string `json:"answers"`
}

// merge fills the blanks from prev and returns the full node to write.
func (uq UpdateQuestion) merge(prev Question) Question {
	next := Question{Question: uq.Question, Answers: make(map[string]string, len(AnswerKeys))}
	if next.Question == "" {
		next.Question = prev.Question
	}
	for i, key := range AnswerKeys {
		if uq.Answers[i] != "" {
			next.Answers[key] = uq.Answers[i]
		} else {
			next.Answers[key] = prev.Answers[key]
		}
	}
	return next
}
