package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/community"
	"github.com/mrlokans/bookshare/internal/entities"
)

var (
	errCannotEditPost    = apperr.Authorization("You cannot edit this post.")
	errCannotEditComment = apperr.Authorization("You cannot edit this comment.")
)

type CommunityController struct {
	community *community.Service
	catalog   CatalogStore
	auditor   Auditor
	views     *Views
}

func NewCommunityController(communityService *community.Service, catalog CatalogStore, auditor Auditor, views *Views) *CommunityController {
	return &CommunityController{
		community: communityService,
		catalog:   catalog,
		auditor:   auditor,
		views:     views,
	}
}

func communityPath(id uint) string {
	return "/community/" + strconv.FormatUint(uint64(id), 10)
}

func postPath(id uint) string {
	return "/community/posts/" + strconv.FormatUint(uint64(id), 10)
}

// Hub lists communities and recent posts from the user's communities.
// GET /community
func (cc *CommunityController) Hub(c *gin.Context) {
	hub, err := cc.community.Hub(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		cc.views.fail(c, err, "load communities")
		return
	}
	cc.views.render(c, http.StatusOK, "community_hub.html", gin.H{
		"Title":       "Community",
		"Communities": hub.Communities,
		"RecentPosts": hub.RecentPosts,
	})
}

// NewForm renders the create community form.
// GET /community/new
func (cc *CommunityController) NewForm(c *gin.Context) {
	cc.views.render(c, http.StatusOK, "community_form.html", gin.H{"Title": "New community"})
}

// Create starts a community. The creator joins it.
// POST /community/new
func (cc *CommunityController) Create(c *gin.Context) {
	name, description := c.PostForm("name"), c.PostForm("description")
	created, err := cc.community.Create(c.Request.Context(), auth.CurrentUser(c), name, description)
	if err != nil {
		cc.views.formError(c, err, "community_form.html", gin.H{
			"Title": "New community",
			"Form":  gin.H{"Name": name, "Description": description},
		}, "create community")
		return
	}
	cc.views.done(c, fmt.Sprintf("Community %q created.", created.Name), communityPath(created.ID), created)
}

// Detail shows a community with its posts and members.
// GET /community/:id
func (cc *CommunityController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := cc.community.Detail(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		cc.views.fail(c, err, "load community")
		return
	}
	cc.views.render(c, http.StatusOK, "community_detail.html", gin.H{
		"Title":     detail.Community.Name,
		"Community": detail.Community,
		"Posts":     detail.Posts,
		"Members":   detail.Members,
		"IsMember":  detail.IsMember,
	})
}

// Join adds the user to a community.
// POST /community/:id/join
func (cc *CommunityController) Join(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	joined, err := cc.community.Join(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		cc.views.failAction(c, err, "/community", "join community")
		return
	}
	cc.views.done(c, fmt.Sprintf("You joined %q.", joined.Name), communityPath(id), nil)
}

// Leave removes the user from a community.
// POST /community/:id/leave
func (cc *CommunityController) Leave(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	left, err := cc.community.Leave(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		cc.views.failAction(c, err, "/community", "leave community")
		return
	}
	cc.views.done(c, fmt.Sprintf("You left %q.", left.Name), communityPath(id), nil)
}

// NewPostForm renders the post form for a community.
// GET /community/:id/posts/new
func (cc *CommunityController) NewPostForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	group, err := cc.community.Get(c.Request.Context(), id)
	if err != nil {
		cc.views.fail(c, err, "load community")
		return
	}
	cc.renderPostForm(c, http.StatusOK, group, nil, gin.H{})
}

// CreatePost publishes a post in a community.
// POST /community/:id/posts/new
func (cc *CommunityController) CreatePost(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	in := postInput(c)

	post, err := cc.community.CreatePost(ctx, auth.CurrentUser(c), id, in)
	if err != nil {
		group, gerr := cc.community.Get(ctx, id)
		if gerr != nil {
			cc.views.fail(c, gerr, "load community")
			return
		}
		cc.postFormError(c, err, group, nil, in, "create post")
		return
	}
	cc.views.done(c, "Post published.", postPath(post.ID), post)
}

// Post shows a post with its comments.
// GET /community/posts/:postId
func (cc *CommunityController) Post(c *gin.Context) {
	post, ok := cc.loadPost(c)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	cc.views.render(c, http.StatusOK, "community_post.html", gin.H{
		"Title":    post.Title,
		"Post":     post,
		"Comments": post.Comments,
		"CanEdit":  user != nil && (post.AuthorID == user.ID || user.IsAdmin()),
	})
}

// EditPostForm renders the edit form for a post.
// GET /community/posts/:postId/edit
func (cc *CommunityController) EditPostForm(c *gin.Context) {
	post, ok := cc.loadPost(c)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	if post.AuthorID != user.ID && !user.IsAdmin() {
		cc.views.fail(c, errCannotEditPost, "edit post")
		return
	}
	group, err := cc.community.Get(c.Request.Context(), post.CommunityID)
	if err != nil {
		cc.views.fail(c, err, "load community")
		return
	}
	cc.renderPostForm(c, http.StatusOK, group, post, gin.H{})
}

// EditPost saves changes to a post.
// POST /community/posts/:postId/edit
func (cc *CommunityController) EditPost(c *gin.Context) {
	id, ok := parseIDParam(c, "postId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	in := postInput(c)

	post, err := cc.community.EditPost(ctx, auth.CurrentUser(c), id, in)
	if err != nil {
		current, perr := cc.community.GetPost(ctx, id)
		if perr != nil {
			cc.views.fail(c, perr, "load post")
			return
		}
		group, gerr := cc.community.Get(ctx, current.CommunityID)
		if gerr != nil {
			cc.views.fail(c, gerr, "load community")
			return
		}
		cc.postFormError(c, err, group, current, in, "edit post")
		return
	}
	cc.views.done(c, "Post updated.", postPath(post.ID), post)
}

// DeletePost removes a post and its comments.
// POST /community/posts/:postId/delete
func (cc *CommunityController) DeletePost(c *gin.Context) {
	id, ok := parseIDParam(c, "postId")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	post, err := cc.community.DeletePost(c.Request.Context(), user, id)
	if err != nil {
		cc.views.failAction(c, err, postPath(id), "delete post")
		return
	}
	cc.auditor.LogDelete(user.ID, "community_post", post.ID, post.Title)
	cc.views.done(c, "Post deleted.", communityPath(post.CommunityID), nil)
}

// AddComment comments on a post.
// POST /community/posts/:postId/comments
func (cc *CommunityController) AddComment(c *gin.Context) {
	id, ok := parseIDParam(c, "postId")
	if !ok {
		return
	}
	comment, err := cc.community.AddComment(c.Request.Context(), auth.CurrentUser(c), id, c.PostForm("content"))
	if err != nil {
		cc.views.failAction(c, err, postPath(id), "add comment")
		return
	}
	cc.views.done(c, "Comment added.", postPath(id), comment)
}

// CommentHistory lists the user's comments.
// GET /community/comments
func (cc *CommunityController) CommentHistory(c *gin.Context) {
	comments, err := cc.community.CommentHistory(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		cc.views.fail(c, err, "load comments")
		return
	}
	cc.views.render(c, http.StatusOK, "community_comments.html", gin.H{
		"Title":    "My comments",
		"Comments": comments,
	})
}

// EditCommentForm renders the edit form for a comment.
// GET /community/comments/:commentId/edit
func (cc *CommunityController) EditCommentForm(c *gin.Context) {
	id, ok := parseIDParam(c, "commentId")
	if !ok {
		return
	}
	comment, err := cc.community.GetComment(c.Request.Context(), id)
	if err != nil {
		cc.views.fail(c, err, "load comment")
		return
	}
	user := auth.CurrentUser(c)
	if comment.AuthorID != user.ID && !user.IsAdmin() {
		cc.views.fail(c, errCannotEditComment, "edit comment")
		return
	}
	cc.views.render(c, http.StatusOK, "community_comment_form.html", gin.H{
		"Title":   "Edit comment",
		"Comment": comment,
	})
}

// EditComment saves changes to a comment.
// POST /community/comments/:commentId/edit
func (cc *CommunityController) EditComment(c *gin.Context) {
	id, ok := parseIDParam(c, "commentId")
	if !ok {
		return
	}
	comment, err := cc.community.EditComment(c.Request.Context(), auth.CurrentUser(c), id, c.PostForm("content"))
	if err != nil {
		cc.views.failAction(c, err, "/community/comments", "edit comment")
		return
	}
	cc.views.done(c, "Comment updated.", postPath(comment.PostID), comment)
}

// DeleteComment removes a comment.
// POST /community/comments/:commentId/delete
func (cc *CommunityController) DeleteComment(c *gin.Context) {
	id, ok := parseIDParam(c, "commentId")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	comment, err := cc.community.DeleteComment(c.Request.Context(), user, id)
	if err != nil {
		cc.views.failAction(c, err, "/community/comments", "delete comment")
		return
	}
	cc.auditor.LogDelete(user.ID, "comment", comment.ID, "")
	cc.views.done(c, "Comment deleted.", backURL(c, postPath(comment.PostID)), nil)
}

func (cc *CommunityController) loadPost(c *gin.Context) (*entities.CommunityPost, bool) {
	id, ok := parseIDParam(c, "postId")
	if !ok {
		return nil, false
	}
	post, err := cc.community.GetPost(c.Request.Context(), id)
	if err != nil {
		cc.views.fail(c, err, "load post")
		return nil, false
	}
	return post, true
}

func (cc *CommunityController) renderPostForm(c *gin.Context, status int, group *entities.Community, post *entities.CommunityPost, data gin.H) {
	data["Title"] = "Post in " + group.Name
	data["Community"] = group
	data["Post"] = post
	// Linkable books are the recent catalog; a failed lookup only hides the picker.
	if recent, err := cc.catalog.RecentApproved(50); err == nil {
		data["Books"] = recent
	}
	cc.views.render(c, status, "community_post_form.html", data)
}

func (cc *CommunityController) postFormError(c *gin.Context, err error, group *entities.Community, post *entities.CommunityPost, in community.PostInput, context string) {
	if !isUserError(err) {
		cc.views.fail(c, err, context)
		return
	}
	status := http.StatusOK
	if wantsJSON(c) {
		status = statusFor(err)
	}
	cc.renderPostForm(c, status, group, post, gin.H{
		"Form":  in,
		"Error": apperr.Message(err, "Please correct the errors below."),
	})
}

func postInput(c *gin.Context) community.PostInput {
	in := community.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}
	if id, err := strconv.ParseUint(c.PostForm("book_id"), 10, 32); err == nil && id > 0 {
		bookID := uint(id)
		in.BookID = &bookID
	}
	return in
}
