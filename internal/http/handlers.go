package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/quillpost/internal/auth"
	"github.com/sujalbistaa/quillpost/internal/events"
	"github.com/sujalbistaa/quillpost/internal/models"
	"github.com/sujalbistaa/quillpost/internal/store"
)

const postDateLayout = "January 02, 2006"

// Env carries the dependencies shared by every handler.
type Env struct {
	Store    *store.Store
	Sessions *scs.SessionManager
	Auth     *auth.Manager
	Hasher   auth.Hasher
	Events   events.Publisher
	Hub      *events.Hub
}

// --- Pages ---

func (e *Env) Home(c *gin.Context) {
	posts, err := e.Store.ListPosts(c.Request.Context())
	if err != nil {
		e.serverError(c, "Error fetching posts", err)
		return
	}
	e.render(c, http.StatusOK, "index.html", gin.H{"Posts": posts})
}

func (e *Env) About(c *gin.Context) {
	e.render(c, http.StatusOK, "about.html", nil)
}

func (e *Env) Contact(c *gin.Context) {
	e.render(c, http.StatusOK, "contact.html", nil)
}

// --- Accounts ---

func (e *Env) Register(c *gin.Context) {
	var form RegisterForm
	if c.Request.Method != http.MethodPost {
		e.render(c, http.StatusOK, "register.html", gin.H{"Form": form})
		return
	}
	if err := c.ShouldBind(&form); err != nil {
		e.render(c, http.StatusUnprocessableEntity, "register.html", gin.H{"Form": form, "Errors": fieldErrors(err)})
		return
	}

	ctx := c.Request.Context()
	hash, err := e.Hasher.Hash(form.Password)
	if err != nil {
		e.serverError(c, "Error hashing password", err)
		return
	}
	user, err := e.Store.CreateUser(ctx, form.Email, hash, form.Name)
	if errors.Is(err, store.ErrDuplicateEmail) {
		e.flash(c, "That Email Already Exists Try to Log In")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil {
		e.serverError(c, "Error creating user", err)
		return
	}
	log.Printf("Registered user %d", user.ID)

	if err := e.Auth.Login(ctx, user, clientFingerprint(c)); err != nil {
		// the account exists; the visitor can still log in normally
		log.Printf("Error logging in new user %d: %v", user.ID, err)
		c.Redirect(http.StatusFound, "/login")
		return
	}
	e.publish(c, events.UserRegistered, gin.H{"id": user.ID, "name": user.Name})
	c.Redirect(http.StatusFound, "/")
}

func (e *Env) Login(c *gin.Context) {
	var form LoginForm
	if c.Request.Method != http.MethodPost {
		e.render(c, http.StatusOK, "login.html", gin.H{"Form": form})
		return
	}
	if err := c.ShouldBind(&form); err != nil {
		e.render(c, http.StatusUnprocessableEntity, "login.html", gin.H{"Form": form, "Errors": fieldErrors(err)})
		return
	}

	ctx := c.Request.Context()
	user, err := e.Store.FindUserByEmail(ctx, form.Email)
	if errors.Is(err, store.ErrNotFound) {
		e.flash(c, "Incorrect Email")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil {
		e.serverError(c, "Error looking up user", err)
		return
	}
	if !e.Hasher.Verify(form.Password, user.Password) {
		e.flash(c, "Incorrect Password")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := e.Auth.Login(ctx, user, clientFingerprint(c)); err != nil {
		e.serverError(c, "Error creating session", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (e *Env) Logout(c *gin.Context) {
	if err := e.Auth.Logout(c.Request.Context()); err != nil {
		e.serverError(c, "Error destroying session", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// --- Posts ---

// ShowPost renders a post with its comments and accepts new comments.
func (e *Env) ShowPost(c *gin.Context) {
	post, ok := e.loadPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)

	var form CommentForm
	status := http.StatusOK
	var formErrs map[string]string

	if c.Request.Method == http.MethodPost {
		if !id.Authenticated() {
			e.flash(c, "You need to login or register to comment")
			c.Redirect(http.StatusFound, "/login")
			return
		}
		if err := c.ShouldBind(&form); err != nil {
			status = http.StatusUnprocessableEntity
			formErrs = fieldErrors(err)
		} else {
			comment, err := e.Store.CreateComment(ctx, form.Text, id.UserID(), post.ID)
			if errors.Is(err, store.ErrNotFound) {
				// deleted between loadPost and the insert
				e.renderError(c, http.StatusNotFound, "Post not found")
				return
			}
			if err != nil {
				e.serverError(c, "Error creating comment", err)
				return
			}
			e.publish(c, events.CommentCreated, gin.H{"id": comment.ID, "postId": post.ID, "author": id.User.Name})
			c.Redirect(http.StatusFound, postPath(post.ID))
			return
		}
	}

	comments, err := e.Store.ListCommentsForPost(ctx, post.ID)
	if err != nil {
		e.serverError(c, "Error fetching comments", err)
		return
	}
	e.render(c, status, "post.html", gin.H{
		"Post":     post,
		"Comments": comments,
		"Form":     form,
		"Errors":   formErrs,
	})
}

func (e *Env) NewPost(c *gin.Context) {
	var form PostForm
	page := gin.H{"Heading": "New Post", "Action": "/new-post"}
	if c.Request.Method != http.MethodPost {
		page["Form"] = form
		e.render(c, http.StatusOK, "make-post.html", page)
		return
	}
	if err := c.ShouldBind(&form); err != nil {
		page["Form"], page["Errors"] = form, fieldErrors(err)
		e.render(c, http.StatusUnprocessableEntity, "make-post.html", page)
		return
	}

	post := models.Post{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Body:     form.Body,
		ImgURL:   form.ImgURL,
		Date:     time.Now().Format(postDateLayout),
		AuthorID: auth.FromContext(c.Request.Context()).UserID(),
	}
	err := e.Store.CreatePost(c.Request.Context(), &post)
	if errors.Is(err, store.ErrDuplicateTitle) {
		e.flash(c, "A post with that title already exists")
		c.Redirect(http.StatusFound, "/new-post")
		return
	}
	if err != nil {
		e.serverError(c, "Error creating post", err)
		return
	}
	e.publish(c, events.PostCreated, gin.H{"id": post.ID, "title": post.Title})
	c.Redirect(http.StatusFound, "/")
}

func (e *Env) EditPost(c *gin.Context) {
	post, ok := e.loadPost(c)
	if !ok {
		return
	}
	action := "/edit-post/" + strconv.FormatUint(uint64(post.ID), 10)
	page := gin.H{"Heading": "Edit Post", "Action": action, "Post": post}

	if c.Request.Method != http.MethodPost {
		page["Form"] = PostForm{Title: post.Title, Subtitle: post.Subtitle, ImgURL: post.ImgURL, Body: post.Body}
		e.render(c, http.StatusOK, "make-post.html", page)
		return
	}

	var form PostForm
	if err := c.ShouldBind(&form); err != nil {
		page["Form"], page["Errors"] = form, fieldErrors(err)
		e.render(c, http.StatusUnprocessableEntity, "make-post.html", page)
		return
	}
	updated, err := e.Store.UpdatePost(c.Request.Context(), post.ID, store.PostFields{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		ImgURL:   form.ImgURL,
		Body:     form.Body,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.renderError(c, http.StatusNotFound, "Post not found")
		return
	case errors.Is(err, store.ErrDuplicateTitle):
		e.flash(c, "A post with that title already exists")
		c.Redirect(http.StatusFound, action)
		return
	case err != nil:
		e.serverError(c, "Error updating post", err)
		return
	}
	e.publish(c, events.PostUpdated, gin.H{"id": updated.ID, "title": updated.Title})
	c.Redirect(http.StatusFound, postPath(updated.ID))
}

func (e *Env) DeletePost(c *gin.Context) {
	postID, ok := parseID(c.Param("id"))
	if !ok {
		e.renderError(c, http.StatusNotFound, "Post not found")
		return
	}
	err := e.Store.DeletePost(c.Request.Context(), postID)
	if errors.Is(err, store.ErrNotFound) {
		e.renderError(c, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		e.serverError(c, "Error deleting post", err)
		return
	}
	e.publish(c, events.PostDeleted, gin.H{"id": postID})
	c.Redirect(http.StatusFound, "/")
}

// --- Helpers ---

// loadPost resolves the :id parameter, writing a 404 page when it fails.
func (e *Env) loadPost(c *gin.Context) (*models.Post, bool) {
	postID, ok := parseID(c.Param("id"))
	if !ok {
		e.renderError(c, http.StatusNotFound, "Post not found")
		return nil, false
	}
	post, err := e.Store.GetPost(c.Request.Context(), postID)
	if errors.Is(err, store.ErrNotFound) {
		e.renderError(c, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if err != nil {
		e.serverError(c, "Error fetching post", err)
		return nil, false
	}
	return post, true
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func postPath(id uint) string {
	return "/post/" + strconv.FormatUint(uint64(id), 10)
}

func clientFingerprint(c *gin.Context) string {
	return auth.Fingerprint(c.ClientIP(), c.Request.UserAgent())
}

func (e *Env) serverError(c *gin.Context, msg string, err error) {
	log.Printf("%s: %v", msg, err)
	e.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// publish never fails the request; a lost live update is only logged.
func (e *Env) publish(c *gin.Context, typ string, data interface{}) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Publish(c.Request.Context(), events.Event{Type: typ, Data: data}); err != nil {
		log.Printf("Error publishing %s event: %v", typ, err)
	}
}
