package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"Fbaccess/internal/core/access"
	"Fbaccess/internal/core/graph"
	"Fbaccess/internal/core/images"
	"Fbaccess/internal/queue"
)

type invocation struct {
	args        []string
	out         io.Writer
	temp        bool
	outPath     string
	scale       images.Dimension
	includeRead bool
}

func (inv invocation) arg(i int) string {
	if i < len(inv.args) {
		return inv.args[i]
	}
	return ""
}

func (inv invocation) intArg(i, fallback int) (int, error) {
	v := inv.arg(i)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ExitError{Code: 2, Message: fmt.Sprintf("invalid number %q", v)}
	}
	return n, nil
}

type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, s *session, inv invocation) error
}

var commands = map[string]command{
	"login":         {usage: "log in through the browser and print the token"},
	"me":            {usage: "[user]", run: runMe},
	"object":        {usage: "<id>", minArgs: 1, run: runObject},
	"feed":          {usage: "[user]", run: listCommand(graph.KindPost, newsFeed)},
	"wall":          {usage: "[user]", run: listCommand(graph.KindPost, wallFeed)},
	"friends":       {usage: "[user]", run: listCommand(graph.KindUser, friends)},
	"albums":        {usage: "[user]", run: listCommand(graph.KindAlbum, albums)},
	"photos":        {usage: "<album> [offset] [limit]", minArgs: 1, run: listCommand(graph.KindPhoto, albumPhotos)},
	"comments":      {usage: "<post>", minArgs: 1, run: listCommand(graph.KindComment, postComments)},
	"events":        {usage: "[user]", run: listCommand(graph.KindObject, events)},
	"inbox":         {usage: "[user] [limit]", run: recordsCommand(inbox)},
	"search":        {usage: "<type> <query>", minArgs: 2, run: recordsCommand(search)},
	"notifications": {usage: "[start_time] [-include-read]", run: recordsCommand(notifications)},
	"details":       {usage: "<id,id,...> <field,field,...>", minArgs: 2, run: runDetails},
	"post":          {usage: "<user> <message>", minArgs: 2, run: runPost},
	"like":          {usage: "<post>", minArgs: 1, run: runLike},
	"comment":       {usage: "<post> <message>", minArgs: 2, run: runComment},
	"picture":       {usage: "<id> [-temp] [-out file] [-width n] [-height n]", minArgs: 1, run: runPicture},
	"thumbnail":     {usage: "<photo> [-temp] [-out file] [-width n] [-height n]", minArgs: 1, run: runThumbnail},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wait(ctx context.Context, job *queue.Job, err error) (*queue.Response, error) {
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

func runMe(ctx context.Context, s *session, inv invocation) error {
	user := &graph.User{}
	job, err := s.client.GetUser(ctx, inv.arg(0), user, nil)
	if _, err := wait(ctx, job, err); err != nil {
		return err
	}
	return printJSON(inv.out, user)
}

func runObject(ctx context.Context, s *session, inv invocation) error {
	job, err := s.client.GetObject(ctx, inv.arg(0), nil)
	resp, err := wait(ctx, job, err)
	if err != nil {
		return err
	}
	return printJSON(inv.out, resp.First())
}

type listFunc func(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error)

// listCommand lists a connection and prints it as typed objects of kind.
func listCommand(kind graph.Kind, list listFunc) func(context.Context, *session, invocation) error {
	return func(ctx context.Context, s *session, inv invocation) error {
		dest := graph.NewList()
		job, err := list(ctx, s.client, inv, dest)
		if _, err := wait(ctx, job, err); err != nil {
			return err
		}
		objs, err := access.CreateObjectsModel(dest, kind)
		if err != nil {
			return err
		}
		return printJSON(inv.out, objs)
	}
}

// recordsCommand lists a connection and prints the raw records.
func recordsCommand(list listFunc) func(context.Context, *session, invocation) error {
	return func(ctx context.Context, s *session, inv invocation) error {
		dest := graph.NewList()
		job, err := list(ctx, s.client, inv, dest)
		if _, err := wait(ctx, job, err); err != nil {
			return err
		}
		return printJSON(inv.out, dest.Items())
	}
}

func newsFeed(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetNewsFeed(ctx, inv.arg(0), dest, nil, nil)
}

func wallFeed(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetWallFeed(ctx, inv.arg(0), dest, nil, nil)
}

func friends(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetUserFriends(ctx, inv.arg(0), dest, nil)
}

func albums(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetUserAlbums(ctx, inv.arg(0), dest, nil)
}

func albumPhotos(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	offset, err := inv.intArg(1, 0)
	if err != nil {
		return nil, err
	}
	limit, err := inv.intArg(2, 25)
	if err != nil {
		return nil, err
	}
	return c.GetAlbumPhotos(ctx, inv.arg(0), dest, offset, limit, nil)
}

func postComments(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetPostComments(ctx, inv.arg(0), dest, nil)
}

func events(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetUserEvents(ctx, inv.arg(0), dest, nil)
}

func inbox(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	limit, err := inv.intArg(1, 10)
	if err != nil {
		return nil, err
	}
	return c.GetUserInboxThreads(ctx, inv.arg(0), dest, limit, nil)
}

func search(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.Search(ctx, inv.arg(0), strings.Join(inv.args[1:], " "), dest, nil)
}

func notifications(ctx context.Context, c *access.Client, inv invocation, dest *graph.List) (*queue.Job, error) {
	return c.GetUserNotifications(ctx, inv.arg(0), inv.includeRead, dest, nil)
}

func runDetails(ctx context.Context, s *session, inv invocation) error {
	job, err := s.client.GetUsersDetails(ctx, splitList(inv.arg(0)), splitList(inv.arg(1)), nil)
	resp, err := wait(ctx, job, err)
	if err != nil {
		return err
	}
	return printJSON(inv.out, resp.Records)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runPost(ctx context.Context, s *session, inv invocation) error {
	if err := s.client.PostOnWall(ctx, inv.arg(0), strings.Join(inv.args[1:], " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(inv.out, "posted")
	return err
}

func runLike(ctx context.Context, s *session, inv invocation) error {
	if err := s.client.PostLike(ctx, inv.arg(0)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(inv.out, "liked")
	return err
}

func runComment(ctx context.Context, s *session, inv invocation) error {
	if err := s.client.PostComment(ctx, inv.arg(0), strings.Join(inv.args[1:], " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(inv.out, "commented")
	return err
}

// pictureSink receives a picture through any of the delivery variants.
type pictureSink struct {
	done chan pictureResult
}

type pictureResult struct {
	data []byte
	err  error
}

func newPictureSink() *pictureSink {
	return &pictureSink{done: make(chan pictureResult, 1)}
}

func (p *pictureSink) SetImage(data []byte) {
	p.done <- pictureResult{data: data}
}

func (p *pictureSink) callback(data []byte, err error) {
	p.done <- pictureResult{data: data, err: err}
}

func (p *pictureSink) wait(ctx context.Context, s *session, inv invocation) error {
	select {
	case r := <-p.done:
		if r.err != nil {
			return r.err
		}
		return writePicture(inv, r.data)
	case err := <-s.imageErrs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writePicture(inv invocation, data []byte) error {
	if inv.outPath == "" {
		_, err := inv.out.Write(data)
		return err
	}
	if err := os.WriteFile(inv.outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write picture: %w", err)
	}
	_, err := fmt.Fprintf(inv.out, "wrote %d bytes to %s\n", len(data), inv.outPath)
	return err
}

func runPicture(ctx context.Context, s *session, inv invocation) error {
	sink := newPictureSink()
	var err error
	if inv.scale.IsZero() {
		err = s.client.GetPictureCallback(ctx, inv.arg(0), sink.callback, inv.temp)
	} else {
		err = s.client.GetPicture(ctx, inv.arg(0), sink, inv.scale, inv.temp)
	}
	if err != nil {
		return err
	}
	return sink.wait(ctx, s, inv)
}

func runThumbnail(ctx context.Context, s *session, inv invocation) error {
	sink := newPictureSink()
	var err error
	if inv.scale.IsZero() {
		err = s.client.GetPhotoThumbnailCallback(ctx, inv.arg(0), sink.callback, inv.temp)
	} else {
		err = s.client.GetPhotoThumbnail(ctx, inv.arg(0), sink, inv.scale, inv.temp)
	}
	if err != nil {
		return err
	}
	return sink.wait(ctx, s, inv)
}
