package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var (
	alice = model.Caller{Email: "alice@x.com"}
	bob   = model.Caller{Email: "bob@x.com"}
	admin = model.Caller{Email: "admin@x.com", Roles: []string{model.RoleAdmin}}

	fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
)

func newService(ctx context.Context) (*service.Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	for _, email := range []string{"alice@x.com", "bob@x.com"} {
		u := model.User{Email: email}
		_ = store.AddUser(ctx, &u)
	}
	adminUser := model.User{Email: "admin@x.com", Roles: []string{model.RoleAdmin}}
	_ = store.AddUser(ctx, &adminUser)

	svc := service.New(store, service.WithClock(func() time.Time { return fixedNow }))
	return svc, store
}

func score(n string) map[string]any {
	return map[string]any{model.AttrScore: json.Number(n)}
}

func statusOf(err error) int {
	var se *service.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	Convey("Given the service", t, func() {
		svc, _ := newService(ctx)

		Convey("An unauthenticated caller is rejected first", func() {
			_, err := svc.Create(ctx, model.Caller{}, score("10"))
			So(statusOf(err), ShouldEqual, 401)
		})

		Convey("A caller creates a result for themself by default", func() {
			result, err := svc.Create(ctx, alice, score("10"))
			So(err, ShouldBeNil)
			So(result.ID, ShouldNotEqual, 0)
			So(result.Score, ShouldEqual, 10)
			So(result.User.Email, ShouldEqual, "alice@x.com")

			Convey("And the time defaults to now when absent", func() {
				So(result.Time, ShouldEqual, fixedNow)
			})
		})

		Convey("A supplied time is honored", func() {
			payload := score("10")
			payload[model.AttrTime] = "2023-01-02 03:04:05"
			result, err := svc.Create(ctx, alice, payload)
			So(err, ShouldBeNil)
			So(result.Time.Format(model.TimeLayout), ShouldEqual, "2023-01-02 03:04:05")
		})

		Convey("A non-admin may not create a result owned by someone else", func() {
			payload := score("10")
			payload[model.AttrUser] = "bob@x.com"
			_, err := svc.Create(ctx, alice, payload)
			So(statusOf(err), ShouldEqual, 403)
		})

		Convey("An admin may create results for anyone", func() {
			payload := score("10")
			payload[model.AttrUser] = "bob@x.com"
			result, err := svc.Create(ctx, admin, payload)
			So(err, ShouldBeNil)
			So(result.User.Email, ShouldEqual, "bob@x.com")
		})

		Convey("An unknown owner is reported as not found, naming the user", func() {
			payload := score("10")
			payload[model.AttrUser] = "ghost@x.com"
			_, err := svc.Create(ctx, admin, payload)
			So(statusOf(err), ShouldEqual, 404)
			So(err.Error(), ShouldContainSubstring, "ghost@x.com")
		})

		Convey("Validation failures aggregate every violation", func() {
			_, err := svc.Create(ctx, alice, map[string]any{
				model.AttrScore: json.Number("-1"),
				model.AttrTime:  "not a time",
			})
			So(statusOf(err), ShouldEqual, 422)
			So(err.Error(), ShouldContainSubstring, "Some request field does not have the correct format:")
			So(err.Error(), ShouldContainSubstring, "must be >= 0.")
			So(err.Error(), ShouldContainSubstring, "Invalid time format.")
			So(err.Error(), ShouldContainSubstring, " | ")
		})
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored result owned by alice", t, func() {
		svc, _ := newService(ctx)
		created, err := svc.Create(ctx, alice, score("10"))
		So(err, ShouldBeNil)

		Convey("The owner reads it back with a fingerprint", func() {
			got, tag, err := svc.Get(ctx, alice, created.ID, nil)
			So(err, ShouldBeNil)
			So(got.Score, ShouldEqual, 10)
			So(tag, ShouldNotBeEmpty)

			Convey("And a matching precondition short-circuits to not modified", func() {
				_, _, err := svc.Get(ctx, alice, created.ID, []string{tag})
				So(errors.Is(err, service.ErrNotModified), ShouldBeTrue)
			})

			Convey("And the wildcard matches too", func() {
				_, _, err := svc.Get(ctx, alice, created.ID, []string{"*"})
				So(errors.Is(err, service.ErrNotModified), ShouldBeTrue)
			})
		})

		Convey("Another plain caller is forbidden", func() {
			_, _, err := svc.Get(ctx, bob, created.ID, nil)
			So(statusOf(err), ShouldEqual, 403)
		})

		Convey("An admin reads anyone's result", func() {
			got, _, err := svc.Get(ctx, admin, created.ID, nil)
			So(err, ShouldBeNil)
			So(got.User.Email, ShouldEqual, "alice@x.com")
		})

		Convey("A missing id names itself in the error", func() {
			_, _, err := svc.Get(ctx, alice, 999, nil)
			So(statusOf(err), ShouldEqual, 404)
			So(err.Error(), ShouldContainSubstring, "#999")
		})
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	Convey("Given results owned by alice and bob", t, func() {
		svc, _ := newService(ctx)
		_, err := svc.Create(ctx, alice, score("10"))
		So(err, ShouldBeNil)
		_, err = svc.Create(ctx, alice, score("30"))
		So(err, ShouldBeNil)
		_, err = svc.Create(ctx, bob, score("20"))
		So(err, ShouldBeNil)

		Convey("A plain caller lists only their own rows", func() {
			results, tag, err := svc.List(ctx, alice, service.ListQuery{}, nil)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)
			So(tag, ShouldNotBeEmpty)

			Convey("And a matching collection fingerprint yields not modified", func() {
				_, _, err := svc.List(ctx, alice, service.ListQuery{}, []string{tag})
				So(errors.Is(err, service.ErrNotModified), ShouldBeTrue)
			})
		})

		Convey("An admin lists every row", func() {
			results, _, err := svc.List(ctx, admin, service.ListQuery{}, nil)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 3)
		})

		Convey("Sorting honors the allow-list and falls back otherwise", func() {
			results, _, err := svc.List(ctx, admin, service.ListQuery{Sort: "result", Order: "desc"}, nil)
			So(err, ShouldBeNil)
			So(results[0].Score, ShouldEqual, 30)

			results, _, err = svc.List(ctx, admin, service.ListQuery{Sort: "bogus", Order: "bogus"}, nil)
			So(err, ShouldBeNil)
			So(results[0].ID, ShouldBeLessThan, results[1].ID)
		})

		Convey("A caller with no rows gets not found, not an empty success", func() {
			carol := model.User{Email: "carol@x.com"}
			_, store := newService(ctx)
			_ = store.AddUser(ctx, &carol)
			empty := service.New(store, service.WithClock(func() time.Time { return fixedNow }))
			_, _, err := empty.List(ctx, model.Caller{Email: "carol@x.com"}, service.ListQuery{}, nil)
			So(statusOf(err), ShouldEqual, 404)
		})
	})
}

func TestReplace(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored result with its fingerprint", t, func() {
		svc, _ := newService(ctx)
		created, err := svc.Create(ctx, alice, score("10"))
		So(err, ShouldBeNil)
		_, t0, err := svc.Get(ctx, alice, created.ID, nil)
		So(err, ShouldBeNil)

		update := func() map[string]any {
			return map[string]any{
				model.AttrScore: json.Number("11"),
				model.AttrUser:  "alice@x.com",
			}
		}

		Convey("A replace presenting the current token succeeds and rotates it", func() {
			next, t1, err := svc.Replace(ctx, alice, created.ID, update(), t0)
			So(err, ShouldBeNil)
			So(next.Score, ShouldEqual, 11)
			So(t1, ShouldNotBeEmpty)
			So(t1, ShouldNotEqual, t0)

			Convey("And a second replace still presenting the stale token fails", func() {
				_, _, err := svc.Replace(ctx, alice, created.ID, update(), t0)
				So(statusOf(err), ShouldEqual, 412)

				Convey("Without applying the write", func() {
					got, _, err := svc.Get(ctx, alice, created.ID, nil)
					So(err, ShouldBeNil)
					So(got.Score, ShouldEqual, 11)
				})
			})

			Convey("While the fresh token admits the next write", func() {
				_, t2, err := svc.Replace(ctx, alice, created.ID, update(), t1)
				So(err, ShouldBeNil)
				So(t2, ShouldNotEqual, t1)
			})
		})

		Convey("A missing token is rejected before anything is applied", func() {
			_, _, err := svc.Replace(ctx, alice, created.ID, update(), "")
			So(statusOf(err), ShouldEqual, 412)
		})

		Convey("An update payload without the owner field fails validation", func() {
			_, _, err := svc.Replace(ctx, alice, created.ID, score("5"), t0)
			So(statusOf(err), ShouldEqual, 422)
			So(err.Error(), ShouldContainSubstring, "User (email) is required.")
		})

		Convey("A non-admin may not hand the record to someone else", func() {
			payload := update()
			payload[model.AttrUser] = "bob@x.com"
			_, _, err := svc.Replace(ctx, alice, created.ID, payload, t0)
			So(statusOf(err), ShouldEqual, 403)
		})

		Convey("An admin may reassign ownership", func() {
			payload := update()
			payload[model.AttrUser] = "bob@x.com"
			next, _, err := svc.Replace(ctx, admin, created.ID, payload, t0)
			So(err, ShouldBeNil)
			So(next.User.Email, ShouldEqual, "bob@x.com")
		})

		Convey("Someone else's record stays forbidden regardless of token", func() {
			_, _, err := svc.Replace(ctx, bob, created.ID, update(), t0)
			So(statusOf(err), ShouldEqual, 403)
		})
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored result", t, func() {
		svc, _ := newService(ctx)
		created, err := svc.Create(ctx, alice, score("10"))
		So(err, ShouldBeNil)

		Convey("The owner deletes it", func() {
			So(svc.Delete(ctx, alice, created.ID), ShouldBeNil)
			_, _, err := svc.Get(ctx, alice, created.ID, nil)
			So(statusOf(err), ShouldEqual, 404)
		})

		Convey("Another plain caller may not", func() {
			So(statusOf(svc.Delete(ctx, bob, created.ID)), ShouldEqual, 403)
		})

		Convey("Deleting a missing id is not found", func() {
			So(statusOf(svc.Delete(ctx, alice, 999)), ShouldEqual, 404)
		})
	})
}

func TestCapabilities(t *testing.T) {
	Convey("Given the capabilities query", t, func() {
		svc := service.New(repository.NewMemoryStore())

		Convey("An item path allows read, replace, delete", func() {
			So(svc.Capabilities(true), ShouldResemble, []string{"GET", "PUT", "DELETE", "OPTIONS"})
		})

		Convey("The collection path allows read and create", func() {
			So(svc.Capabilities(false), ShouldResemble, []string{"GET", "POST", "OPTIONS"})
		})

		Convey("User resources are read-only", func() {
			So(svc.UserCapabilities(true), ShouldResemble, []string{"GET", "OPTIONS"})
		})
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()

	Convey("Given the seeded users", t, func() {
		svc, store := newService(ctx)

		Convey("Any authenticated caller lists users", func() {
			users, tag, err := svc.ListUsers(ctx, bob, "email", nil)
			So(err, ShouldBeNil)
			So(users, ShouldHaveLength, 3)
			So(users[0].Email, ShouldEqual, "admin@x.com")
			So(tag, ShouldNotBeEmpty)
		})

		Convey("A single user is fetched by id", func() {
			u, err := store.FindUserByEmail(ctx, "alice@x.com")
			So(err, ShouldBeNil)
			got, _, err := svc.GetUser(ctx, bob, u.ID, nil)
			So(err, ShouldBeNil)
			So(got.Email, ShouldEqual, "alice@x.com")
		})

		Convey("A user's results are gated by ownership", func() {
			_, err := svc.Create(ctx, alice, score("10"))
			So(err, ShouldBeNil)
			u, err := store.FindUserByEmail(ctx, "alice@x.com")
			So(err, ShouldBeNil)

			results, _, err := svc.UserResults(ctx, alice, u.ID, service.ListQuery{}, nil)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)

			_, _, err = svc.UserResults(ctx, bob, u.ID, service.ListQuery{}, nil)
			So(statusOf(err), ShouldEqual, 403)

			_, _, err = svc.UserResults(ctx, admin, u.ID, service.ListQuery{}, nil)
			So(err, ShouldBeNil)
		})

		Convey("An unknown user id is not found", func() {
			_, _, err := svc.GetUser(ctx, bob, 999, nil)
			So(statusOf(err), ShouldEqual, 404)
		})
	})
}
