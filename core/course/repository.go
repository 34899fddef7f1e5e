package course

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/storage/tree"
)

// Repository is the course content store: CRUD over courses and their
// nested questions and video refs, written through to the remote tree.
// Deleting a course removes its whole subtree in one call but never
// retracts the course ID from any grant set; readers tolerate the dangling
// references that leaves behind.
type Repository struct {
	db tree.Store
}

func NewRepository(db tree.Store) *Repository {
	return &Repository{db: db}
}

func coursePath(id string) string { return tree.Join("courses", id) }

// Create writes the two descriptive fields under a fresh push key and
// returns the new course ID.
func (repo *Repository) Create(ctx context.Context, nc NewCourse) (string, error) {
	id := repo.db.GenerateKey("courses")
	node := map[string]string{"name": nc.Name, "description": nc.Description}
	if err := repo.db.Write(ctx, coursePath(id), node); err != nil {
		return "", errors.Wrap(err, "creating course")
	}
	return id, nil
}

// Update overwrites name and description only; nested videos and questions
// are untouched.
func (repo *Repository) Update(ctx context.Context, id, name, description string) error {
	if err := repo.db.Write(ctx, tree.Join(coursePath(id), "name"), name); err != nil {
		return errors.Wrapf(err, "updating course %q", id)
	}
	if err := repo.db.Write(ctx, tree.Join(coursePath(id), "description"), description); err != nil {
		return errors.Wrapf(err, "updating course %q", id)
	}
	return nil
}

// Delete removes the course subtree; nested questions and video refs
// disappear with it.
func (repo *Repository) Delete(ctx context.Context, id string) error {
	return errors.Wrapf(repo.db.Write(ctx, coursePath(id), nil), "deleting course %q", id)
}

func (repo *Repository) Get(ctx context.Context, id string) (Course, error) {
	var crs Course
	if err := repo.db.Read(ctx, coursePath(id), &crs); err != nil {
		if errors.Cause(err) == tree.ErrAbsent {
			return Course{}, ErrNotFound
		}
		return Course{}, errors.Wrapf(err, "reading course %q", id)
	}
	crs.ID = id
	return crs, nil
}

// QueryAll reads every course, sorted by ID (store key order).
func (repo *Repository) QueryAll(ctx context.Context) ([]Course, error) {
	nodes := make(map[string]Course)
	if err := repo.db.Read(ctx, "courses", &nodes); err != nil {
		if errors.Cause(err) == tree.ErrAbsent {
			return []Course{}, nil
		}
		return nil, errors.Wrap(err, "reading courses")
	}
	return sortCourses(nodes), nil
}

// WatchAll pushes the full course list on every remote change.
func (repo *Repository) WatchAll(fn func(courses []Course)) (tree.Unsubscribe, error) {
	return repo.db.Subscribe("courses", func(raw json.RawMessage) {
		nodes := make(map[string]Course)
		if len(raw) != 0 && string(raw) != "null" {
			_ = json.Unmarshal(raw, &nodes)
		}
		fn(sortCourses(nodes))
	})
}

// AddVideo appends a video ref under a store-generated key and returns it.
func (repo *Repository) AddVideo(ctx context.Context, courseID, url, name string) (string, error) {
	parent := tree.Join(coursePath(courseID), "videos")
	id := repo.db.GenerateKey(parent)
	if err := repo.db.Write(ctx, tree.Join(parent, id), Video{URL: url, Name: name}); err != nil {
		return "", errors.Wrapf(err, "adding video to course %q", courseID)
	}
	return id, nil
}

// AddQuestion stores the four answers under their canonical option keys and
// returns the new question ID.
func (repo *Repository) AddQuestion(ctx context.Context, courseID string, nq NewQuestion) (string, error) {
	answers := make(map[string]string, len(AnswerKeys))
	for i, key := range AnswerKeys {
		answers[key] = nq.Answers[i]
	}
	parent := tree.Join(coursePath(courseID), "questions")
	id := repo.db.GenerateKey(parent)
	if err := repo.db.Write(ctx, tree.Join(parent, id), Question{Question: nq.Question, Answers: answers}); err != nil {
		return "", errors.Wrapf(err, "adding question to course %q", courseID)
	}
	return id, nil
}

// UpdateQuestion merges blank slots of uq from prev (the caller's snapshot
// of the question, which may be stale) and overwrites the whole node.
func (repo *Repository) UpdateQuestion(ctx context.Context, courseID string, prev Question, uq UpdateQuestion) error {
	path := tree.Join(coursePath(courseID), "questions", prev.ID)
	return errors.Wrapf(repo.db.Write(ctx, path, uq.merge(prev)), "updating question %q", prev.ID)
}

// GetQuestion reads one question by ID.
func (repo *Repository) GetQuestion(ctx context.Context, courseID, questionID string) (Question, error) {
	var q Question
	path := tree.Join(coursePath(courseID), "questions", questionID)
	if err := repo.db.Read(ctx, path, &q); err != nil {
		if errors.Cause(err) == tree.ErrAbsent {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, errors.Wrapf(err, "reading question %q", questionID)
	}
	q.ID = questionID
	return q, nil
}

// DeleteQuestion removes a single question node.
func (repo *Repository) DeleteQuestion(ctx context.Context, courseID, questionID string) error {
	path := tree.Join(coursePath(courseID), "questions", questionID)
	return errors.Wrapf(repo.db.Write(ctx, path, nil), "deleting question %q", questionID)
}

func sortCourses(nodes map[string]Course) []Course {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	courses := make([]Course, 0, len(ids))
	for _, id := range ids {
		crs := nodes[id]
		crs.ID = id
		courses = append(courses, crs)
	}
	return courses
}
