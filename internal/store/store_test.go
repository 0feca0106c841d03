package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sujalbistaa/quillpost/internal/db"
	"github.com/sujalbistaa/quillpost/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return New(gdb)
}

func seedPost(t *testing.T, s *Store, author uint, title string) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Subtitle: "s", Date: "January 02, 2006", Body: "b", ImgURL: "u", AuthorID: author}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@x.com", "hash", "A")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	_, err = s.CreateUser(ctx, "a@x.com", "other", "B")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	found, err := s.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "A", found.Name)

	_, err = s.FindUserByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, "admin@x.com", "hash", "Admin")
	require.NoError(t, err)

	p := seedPost(t, s, admin.ID, "Hello")
	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "Admin", got.Author.Name)

	err = s.CreatePost(ctx, &models.Post{Title: "Hello", Subtitle: "s", Date: "d", Body: "b", ImgURL: "u", AuthorID: admin.ID})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	updated, err := s.UpdatePost(ctx, p.ID, PostFields{Title: "Hello again", Subtitle: "s2", ImgURL: "u2", Body: "b2"})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, p.Date, updated.Date)
	assert.Equal(t, admin.ID, updated.AuthorID)

	// keeping its own title is not a clash
	_, err = s.UpdatePost(ctx, p.ID, PostFields{Title: "Hello again", Subtitle: "s3", ImgURL: "u", Body: "b"})
	require.NoError(t, err)

	_, err = s.UpdatePost(ctx, 999, PostFields{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "s3", posts[0].Subtitle)
}

func TestUpdatePostRejectsTakenTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, "admin@x.com", "hash", "Admin")
	require.NoError(t, err)
	seedPost(t, s, admin.ID, "First")
	second := seedPost(t, s, admin.ID, "Second")

	_, err = s.UpdatePost(ctx, second.ID, PostFields{Title: "First", Subtitle: "s", ImgURL: "u", Body: "b"})
	assert.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestCreatePostRequiresAuthor(t *testing.T) {
	s := newTestStore(t)
	err := s.CreatePost(context.Background(), &models.Post{Title: "Orphan", Subtitle: "s", Date: "d", Body: "b", ImgURL: "u", AuthorID: 7})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentsAreScopedToTheirPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, "admin@x.com", "hash", "Admin")
	require.NoError(t, err)
	reader, err := s.CreateUser(ctx, "r@x.com", "hash", "Reader")
	require.NoError(t, err)
	one := seedPost(t, s, admin.ID, "One")
	two := seedPost(t, s, admin.ID, "Two")

	_, err = s.CreateComment(ctx, "nice post", reader.ID, one.ID)
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, "elsewhere", reader.ID, two.ID)
	require.NoError(t, err)

	comments, err := s.ListCommentsForPost(ctx, one.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice post", comments[0].Text)
	assert.Equal(t, "Reader", comments[0].Author.Name)

	_, err = s.CreateComment(ctx, "ghost", reader.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CreateComment(ctx, "ghost", 999, one.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostRemovesComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, "admin@x.com", "hash", "Admin")
	require.NoError(t, err)
	p := seedPost(t, s, admin.ID, "Doomed")
	_, err = s.CreateComment(ctx, "bye", admin.ID, p.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, p.ID))

	_, err = s.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := s.ListCommentsForPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	assert.ErrorIs(t, s.DeletePost(ctx, p.ID), ErrNotFound)
}

func TestTranslateDuplicateDependsOnCaller(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, ErrDuplicateEmail), ErrDuplicateEmail)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, ErrDuplicateTitle), ErrDuplicateTitle)

	err := translate(gorm.ErrDuplicatedKey, ErrConstraintViolation)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.NotErrorIs(t, err, ErrDuplicateTitle)

	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, ErrDuplicateTitle), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrForeignKeyViolated, ErrConstraintViolation), ErrNotFound)

	other := errors.New("disk full")
	assert.Equal(t, other, translate(other, ErrDuplicateTitle))
}

func TestCreateCommentOnPostDeletedMidInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, "admin@x.com", "hash", "Admin")
	require.NoError(t, err)
	p := seedPost(t, s, admin.ID, "Hello")

	// runs inside the comment's transaction, after the existence checks
	err = s.db.Callback().Create().Before("gorm:create").Register("test:drop_post", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Comment); ok {
			tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM blog_posts WHERE id = ?", p.ID)
		}
	})
	require.NoError(t, err)

	_, err = s.CreateComment(ctx, "late", admin.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	comments, err := s.ListCommentsForPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
