package models

// User is a registered account. The user with ID 1 is the administrator.
type User struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	Email    string    `gorm:"size:250;not null;uniqueIndex" json:"email"`
	Password string    `gorm:"size:250;not null" json:"-"` // salted hash, never plaintext
	Name     string    `gorm:"size:250;not null" json:"name"`
	Posts    []Post    `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:AuthorID" json:"-"`
}

func (User) TableName() string { return "users" }

// Post is a blog entry written by the administrator.
type Post struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	Title    string    `gorm:"size:250;not null;uniqueIndex" json:"title"`
	Subtitle string    `gorm:"size:250;not null" json:"subtitle"`
	Date     string    `gorm:"size:250;not null" json:"date"`
	Body     string    `gorm:"type:text;not null" json:"body"`
	ImgURL   string    `gorm:"column:img_url;size:500;not null" json:"imgUrl"`
	AuthorID uint      `gorm:"not null;index" json:"authorId"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

func (Post) TableName() string { return "blog_posts" }

// Comment is a reader's note on a post.
type Comment struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	AuthorID uint   `gorm:"not null;index" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"-"`
	PostID   uint   `gorm:"not null;index" json:"postId"`
	Post     Post   `gorm:"foreignKey:PostID" json:"-"`
}

func (Comment) TableName() string { return "comments" }
