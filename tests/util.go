package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/course"
	emailsvc "github.com/edecs/elearn/services/email"
	dummyauth "github.com/edecs/elearn/services/identity/dummy"
	inmemtree "github.com/edecs/elearn/storage/tree/inmem"
)

// Logger is a core.Logger that records through testing.T.
type Logger struct {
	T *testing.T
}

func (l Logger) Enable(bool)                           {}
func (l Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.T.Fatalf("FATAL: %s %v", msg, args) }

func (l Logger) log(lvl, msg string, args []interface{}) {
	l.T.Helper()
	l.T.Logf("%s: %s %v", lvl, msg, args)
}

// Deps bundles a full set of in-memory collaborators for a test.
type Deps struct {
	Conf       *core.Config
	Tree       *inmemtree.Store
	Provider   *dummyauth.Service
	Roles      *account.Store
	AccountSvc *account.Service
	CourseRepo *course.Repository
}

// NewDeps wires the account service, course repository and their
// collaborators on top of a fresh in-memory tree.
func NewDeps(t *testing.T) *Deps {
	t.Helper()

	conf := &core.Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Elearn",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@test.cd",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
	}
	db := inmemtree.NewStore()
	provider := dummyauth.NewService()
	roles := account.NewStore(db)
	svc := account.NewService(db, roles, provider, emailsvc.NewConsoleServiceMock(conf), Logger{T: t}, conf)

	return &Deps{
		Conf:       conf,
		Tree:       db,
		Provider:   provider,
		Roles:      roles,
		AccountSvc: svc,
		CourseRepo: course.NewRepository(db),
	}
}

// NewValidator returns a validator + translator pair with the portal's
// custom validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate, translator
}

// CreateAccount provisions an account or fails the test.
func CreateAccount(t *testing.T, svc *account.Service, email, pwd string, admin bool) {
	t.Helper()
	if err := svc.CreateAccount(context.Background(), account.NewAccount{Email: email, Password: pwd, Admin: admin}); err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", email, err)
	}
}

// CreateCourse creates a course with n paired videos/questions and returns its ID.
func CreateCourse(t *testing.T, repo *course.Repository, name string, videos, questions int) string {
	t.Helper()
	ctx := context.Background()

	id, err := repo.Create(ctx, course.NewCourse{Name: name, Description: name + " description"})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", name, err)
	}
	for i := 0; i < videos; i++ {
		if _, err := repo.AddVideo(ctx, id, "https://cdn.test.cd/v.mp4", "v"); err != nil {
			t.Fatalf("AddVideo() failed: %v", err)
		}
	}
	for i := 0; i < questions; i++ {
		nq := course.NewQuestion{Question: "q?", Answers: [4]string{"a", "b", "c", "d"}}
		if _, err := repo.AddQuestion(ctx, id, nq); err != nil {
			t.Fatalf("AddQuestion() failed: %v", err)
		}
	}
	return id
}
