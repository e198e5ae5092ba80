package web

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/piaflabs/piaf/db"
	"github.com/piaflabs/piaf/domain"
	"github.com/piaflabs/piaf/util"
)

// GetRSS renders the timeline as an RSS feed, optionally restricted to
// a single author. Newest posts come first.
func GetRSS(conf *util.AppConfig, posts *db.PostStore, username string) (string, error) {

	var items []domain.Post
	var title string
	var createdBy string
	var err error

	link := fmt.Sprintf("http://%s:%d/feed", conf.Conf.Host, conf.Conf.HttpPort)

	if username != "" {
		items, err = posts.ListByAuthor(username)
		if err != nil {
			return "", err
		}
		title = fmt.Sprintf("Piaf Posts - %s", username)
		createdBy = username
		link = fmt.Sprintf("%s?username=%s", link, username)
	} else {
		items, err = posts.ListAll()
		if err != nil {
			return "", err
		}
		title = "All Piaf Posts"
		createdBy = "everyone"
	}

	domain.SortByCreatedAtDesc(items)

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "rss feed for piaf",
		Author:      &feeds.Author{Name: createdBy, Email: fmt.Sprintf("%s@piaf", createdBy)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, post := range items {
		email := fmt.Sprintf("%s@piaf", post.Author)
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      post.Id,
				Title:   post.CreatedAt.Format(util.DateTimeFormat()),
				Link:    &feeds.Link{Href: fmt.Sprintf("http://%s:%d/feed/%s", conf.Conf.Host, conf.Conf.HttpPort, post.Id)},
				Content: post.Content,
				Author:  &feeds.Author{Name: post.Author, Email: email},
				Created: post.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}

// GetRSSItem renders a single post as a one-item RSS feed.
func GetRSSItem(conf *util.AppConfig, posts *db.PostStore, id string) (string, error) {
	post, err := posts.GetByID(id)
	if err != nil {
		return "", err
	}

	email := fmt.Sprintf("%s@piaf", post.Author)
	url := fmt.Sprintf("http://%s:%d/feed/%s", conf.Conf.Host, conf.Conf.HttpPort, post.Id)

	feed := &feeds.Feed{
		Title:       "Single Piaf Post",
		Link:        &feeds.Link{Href: url},
		Description: "rss feed for piaf",
		Author:      &feeds.Author{Name: post.Author, Email: email},
		Created:     time.Now(),
	}

	feed.Items = []*feeds.Item{
		{
			Id:      post.Id,
			Title:   post.CreatedAt.Format(util.DateTimeFormat()),
			Link:    &feeds.Link{Href: url},
			Content: post.Content,
			Author:  &feeds.Author{Name: post.Author, Email: email},
			Created: post.CreatedAt,
		},
	}

	return feed.ToRss()
}
