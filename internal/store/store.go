// Package store persists users, posts and comments through GORM.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/quillpost/internal/models"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDuplicateEmail      = fmt.Errorf("%w: email already registered", ErrConstraintViolation)
	ErrDuplicateTitle      = fmt.Errorf("%w: title already used", ErrConstraintViolation)
)

// PostFields are the user-editable columns of a post.
type PostFields struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}

// Store is the content store handed to the HTTP layer.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Posts ---

// ListPosts returns every post in storage order with its author loaded.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Order("id asc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, translate(err, ErrConstraintViolation)
	}
	return &post, nil
}

// CreatePost inserts post; post.AuthorID must reference an existing user.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.User{}, post.AuthorID); err != nil {
			return err
		}
		if err := titleFree(tx, post.Title, 0); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return translate(err, ErrDuplicateTitle)
		}
		return nil
	})
}

// UpdatePost replaces the editable fields of the post with the given id.
func (s *Store) UpdatePost(ctx context.Context, id uint, fields PostFields) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return translate(err, ErrConstraintViolation)
		}
		if err := titleFree(tx, fields.Title, id); err != nil {
			return err
		}
		post.Title = fields.Title
		post.Subtitle = fields.Subtitle
		post.ImgURL = fields.ImgURL
		post.Body = fields.Body
		if err := tx.Omit(clause.Associations).Save(&post).Error; err != nil {
			return translate(err, ErrDuplicateTitle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes the post and its comments.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Post{}, id); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// --- Users ---

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, ErrConstraintViolation)
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, ErrConstraintViolation)
	}
	return &user, nil
}

// CreateUser registers a new account. passwordHash must already be a credential.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	user := models.User{Email: email, Password: passwordHash, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateEmail
		}
		if err := tx.Create(&user).Error; err != nil {
			return translate(err, ErrDuplicateEmail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Comments ---

// ListCommentsForPost returns the comments on one post, oldest first.
func (s *Store) ListCommentsForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("id asc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) CreateComment(ctx context.Context, text string, authorID, postID uint) (*models.Comment, error) {
	comment := models.Comment{Text: text, AuthorID: authorID, PostID: postID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Post{}, postID); err != nil {
			return err
		}
		if err := mustExist(tx, &models.User{}, authorID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return translate(err, ErrConstraintViolation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func mustExist(tx *gorm.DB, model any, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func titleFree(tx *gorm.DB, title string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.Post{}).Where("title = ? AND id <> ?", title, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateTitle
	}
	return nil
}

// translate maps gorm errors onto the store's sentinels. dup says what a
// unique index violation means at the call site. A dangling foreign key
// means the referenced row vanished mid-request, so it reads as not found.
func translate(err, dup error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return dup
	}
	return err
}
