package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

type RegisterForm struct {
	Email    string `form:"email" binding:"required,email,max=250"`
	Password string `form:"password" binding:"required"`
	Name     string `form:"name" binding:"required,max=250"`
}

type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type PostForm struct {
	Title    string `form:"title" binding:"required,max=250"`
	Subtitle string `form:"subtitle" binding:"required,max=250"`
	ImgURL   string `form:"img_url" binding:"required,max=500"`
	Body     string `form:"body" binding:"required"`
}

type CommentForm struct {
	Text string `form:"text" binding:"required"`
}

// fieldErrors maps struct field names to a message for the template.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["Form"] = "The form could not be read."
		return out
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required."
		case "email":
			out[fe.Field()] = "Enter a valid email address."
		case "max":
			out[fe.Field()] = "Must be at most " + fe.Param() + " characters."
		default:
			out[fe.Field()] = "Invalid value."
		}
	}
	return out
}
