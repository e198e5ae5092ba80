package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piaflabs/piaf/db"
	"github.com/piaflabs/piaf/domain"
	"github.com/piaflabs/piaf/util"
)

// Handlers bundles the stores behind the HTTP surface. The web layer
// only translates between JSON and the store operations; every rule
// lives in the db package.
type Handlers struct {
	conf     *util.AppConfig
	accounts *db.AccountStore
	posts    *db.PostStore
	coord    *db.Coordinator
}

// ProfileView is the public shape of an account. Credentials never
// leave the store.
type ProfileView struct {
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Bio            string   `json:"bio,omitempty"`
	ProfilePicture string   `json:"profile_picture,omitempty"`
	Posts          []string `json:"posts"`
	Followers      []string `json:"followers"`
	Followed       []string `json:"followed"`
}

func profileView(acc *domain.Account) ProfileView {
	return ProfileView{
		Username:       acc.Username,
		Email:          acc.Email,
		Bio:            acc.Bio,
		ProfilePicture: acc.ProfilePicture,
		Posts:          acc.Posts,
		Followers:      acc.Followers,
		Followed:       acc.Followed,
	}
}

// errorStatus maps a failure kind to an HTTP status. The kinds are the
// whole contract; no handler inspects error strings.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, db.ErrUsernameTaken),
		errors.Is(err, db.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, db.ErrWeakPassword),
		errors.Is(err, db.ErrContentTooLong):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrAccountNotFound),
		errors.Is(err, db.ErrPostNotFound),
		errors.Is(err, db.ErrRelationshipNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func (h *Handlers) HandleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	acc, err := h.accounts.CreateAccount(req.Username, req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, profileView(acc))
}

func (h *Handlers) HandleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	// Authentication failure is a plain false, never a distinguishing
	// error, so usernames cannot be enumerated here
	ok, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

func (h *Handlers) HandleProfile(c *gin.Context) {
	acc, err := h.accounts.FindByUsername(c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileView(acc))
}

func (h *Handlers) HandleUpdateProfile(c *gin.Context) {
	var req struct {
		Email          *string `json:"email"`
		Password       *string `json:"password"`
		Bio            *string `json:"bio"`
		ProfilePicture *string `json:"profile_picture"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile update"})
		return
	}

	acc, err := h.accounts.UpdateProfile(c.Param("username"), db.ProfileUpdate{
		Email:          req.Email,
		Password:       req.Password,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileView(acc))
}

func (h *Handlers) HandleRenameAccount(c *gin.Context) {
	var req struct {
		NewUsername string `json:"newUsername" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newUsername is required"})
		return
	}

	if err := h.coord.RenameAccount(c.Param("username"), req.NewUsername); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": req.NewUsername})
}

func (h *Handlers) HandleDeleteAccount(c *gin.Context) {
	if err := h.coord.RemoveAccount(c.Param("username")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleTimeline(c *gin.Context) {
	posts, err := h.posts.ListAll()
	if err != nil {
		abortWithError(c, err)
		return
	}

	domain.SortByCreatedAtDesc(posts)
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handlers) HandleCreatePost(c *gin.Context) {
	var req struct {
		Author   string `json:"author" binding:"required"`
		Content  string `json:"content" binding:"required"`
		MediaRef string `json:"media_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author and content are required"})
		return
	}

	post, err := h.coord.RegisterPost(req.Author, util.NormalizeInput(req.Content), req.MediaRef)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *Handlers) HandleGetPost(c *gin.Context) {
	post, err := h.posts.GetByID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handlers) HandleDeletePost(c *gin.Context) {
	if err := h.coord.RemovePost(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleRandomPost(c *gin.Context) {
	id, err := h.posts.RandomPost()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": id})
}

func (h *Handlers) HandleToggleLike(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	id := c.Param("id")
	if err := h.posts.ToggleLike(id, req.Username); err != nil {
		abortWithError(c, err)
		return
	}

	likes, err := h.posts.CountLikes(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	liked, err := h.posts.HasLiked(id, req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes, "liked": liked})
}

func (h *Handlers) HandleAddReply(c *gin.Context) {
	var req struct {
		Author  string `json:"author" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author and content are required"})
		return
	}

	reply, err := h.posts.AddReply(c.Param("id"), req.Author, util.NormalizeInput(req.Content))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reply)
}

func (h *Handlers) HandleReport(c *gin.Context) {
	var req struct {
		Reporter string `json:"reporter" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reporter is required"})
		return
	}

	res, err := h.posts.Report(c.Param("id"), req.Reporter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reported": res.Reported, "removed": res.Removed})
}

func (h *Handlers) HandleFollow(c *gin.Context) {
	var req struct {
		Follower string `json:"follower" binding:"required"`
		Followee string `json:"followee" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "follower and followee are required"})
		return
	}

	if err := h.accounts.Follow(req.Follower, req.Followee); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleUnfollow(c *gin.Context) {
	var req struct {
		Follower string `json:"follower" binding:"required"`
		Followee string `json:"followee" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "follower and followee are required"})
		return
	}

	if err := h.accounts.Unfollow(req.Follower, req.Followee); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleStats(c *gin.Context) {
	count, err := h.accounts.CountAccounts()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": count})
}
