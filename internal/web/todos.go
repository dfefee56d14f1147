package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/route"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/todolist"
	"github.com/marcus/taskboard/internal/validate"
)

type tab struct {
	Label  string
	URL    string
	Active bool
}

type card struct {
	*store.Todo
	Description template.HTML
	EditURL     string
	DeleteURL   string
	ToggleURL   string
	ShareURL    string
}

type pagerLink struct {
	todolist.PageItem
	URL string
}

type todoForm struct {
	Title       string
	Description string
}

// todosPage is the board: one list view plus the dialog its URL opens.
type todosPage struct {
	View      todolist.View
	Tabs      []tab
	Params    route.Params
	ListURL   string
	CloseURL  string
	CreateURL string
	Result    todolist.Page
	Cards     []card
	Pager     []pagerLink
	PrevURL   string
	NextURL   string

	Modal      route.Context
	FormAction string
	Form       todoForm
	Target     *store.Todo
}

// boardContext decodes the view, dialog and list parameters of a board URL.
func boardContext(r *http.Request) (route.Context, route.Params, bool) {
	ctx, ok := route.Parse(r.URL.Path)
	if !ok {
		return route.Context{}, route.Params{}, false
	}
	if id := mux.Vars(r)["id"]; id != "" {
		ctx.TodoID = id
	}
	return ctx, route.ParseParams(r.URL.Query()), true
}

func listURL(ctx route.Context, params route.Params) string {
	return route.WithQuery(route.ViewPath(ctx.View), params)
}

func toggleURL(view todolist.View, id string, params route.Params) string {
	return route.WithQuery(route.Prefix(view)+"/task/"+url.PathEscape(id)+"/toggle", params)
}

// buildBoard loads the user's todos and lays out the board for ctx. A
// non-empty redirect means the URL asked for something that does not exist
// and the caller should send the browser there instead.
func (h *Handler) buildBoard(w http.ResponseWriter, r *http.Request, user *store.User, ctx route.Context, params route.Params) (p *page, redirect string, err error) {
	lang := h.lang(r)
	todos, err := h.store.ListTodos(user.ID)
	if err != nil {
		return nil, "", err
	}

	view := ctx.View
	if view == todolist.ViewAll && params.Filter != "" {
		view = params.Filter
	}
	q := todolist.Query{
		View:    view,
		Search:  params.Search,
		Page:    params.Page,
		PerPage: todolist.DefaultPerPage,
	}
	result := todolist.Apply(todos, q)
	if result.TotalPages > 0 && params.Page > result.TotalPages {
		if r.Method == http.MethodGet {
			path := route.ModalPath(ctx.View, ctx.Action, ctx.TodoID)
			return nil, route.PageLink(path, params, result.TotalPages), nil
		}
		// a rejected form is re-rendered in place, over the last page
		params.Page = result.TotalPages
		q.Page = params.Page
		result = todolist.Apply(todos, q)
	}

	bp := &todosPage{
		View:      ctx.View,
		Params:    params,
		ListURL:   route.ViewPath(ctx.View),
		CloseURL:  listURL(ctx, params),
		CreateURL: route.WithQuery(route.ModalPath(ctx.View, route.ActionCreate, ""), params),
		Result:    result,
		Modal:     ctx,
	}
	for _, v := range todolist.Views {
		bp.Tabs = append(bp.Tabs, tab{
			Label:  "nav." + string(v),
			URL:    route.WithQuery(route.ViewPath(v), route.Params{Page: 1, Search: params.Search}),
			Active: v == ctx.View,
		})
	}
	for _, t := range result.Items {
		bp.Cards = append(bp.Cards, card{
			Todo:        t,
			Description: renderMarkdown(t.Description),
			EditURL:     route.WithQuery(route.ModalPath(ctx.View, route.ActionEdit, t.ID), params),
			DeleteURL:   route.WithQuery(route.ModalPath(ctx.View, route.ActionDelete, t.ID), params),
			ToggleURL:   toggleURL(ctx.View, t.ID, params),
			ShareURL:    route.TodoLink(h.opts.BaseURL, t.ID),
		})
	}
	list := route.ViewPath(ctx.View)
	for _, item := range todolist.PageNumbers(result.Page, result.TotalPages) {
		link := pagerLink{PageItem: item}
		if !item.Ellipsis {
			link.URL = route.PageLink(list, params, item.Number)
		}
		bp.Pager = append(bp.Pager, link)
	}
	if todolist.HasPrev(result.Page) {
		bp.PrevURL = route.PageLink(list, params, result.Page-1)
	}
	if todolist.HasNext(result.Page, result.TotalPages) {
		bp.NextURL = route.PageLink(list, params, result.Page+1)
	}

	if ctx.Modal() {
		bp.FormAction = route.WithQuery(route.ModalPath(ctx.View, ctx.Action, ctx.TodoID), params)
	}
	if ctx.Action == route.ActionEdit || ctx.Action == route.ActionDelete {
		target, err := h.store.GetTodo(user.ID, ctx.TodoID)
		if err != nil {
			return nil, "", err
		}
		if target == nil {
			h.setFlash(w, flashError, i18n.T(lang, "toast.apiError.404"))
			return nil, listURL(ctx, params), nil
		}
		bp.Target = target
		bp.Form = todoForm{Title: target.Title, Description: target.Description}
	}

	return &page{
		Lang:      lang,
		User:      user,
		Title:     "todos.title",
		todosPage: bp,
	}, "", nil
}

func (h *Handler) serveBoard(w http.ResponseWriter, r *http.Request, user *store.User, status int, adjust func(*page)) {
	ctx, params, ok := boardContext(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p, redirect, err := h.buildBoard(w, r, user, ctx, params)
	if err != nil {
		h.log(r).Error("load board", "err", err)
		msg := i18n.T(h.lang(r), "toast.todo.loadError", http.StatusText(http.StatusInternalServerError))
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	if redirect != "" {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	if adjust != nil {
		adjust(p)
	}
	h.render(w, r, status, "todos", p)
}

// handleBoard renders a list view, with a dialog when the path names one.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request, user *store.User) {
	h.serveBoard(w, r, user, http.StatusOK, nil)
}

// rejectForm re-renders the open dialog with the submitted values and
// their validation errors.
func (h *Handler) rejectForm(w http.ResponseWriter, r *http.Request, user *store.User, form todoForm, errs validate.Errors) {
	h.serveBoard(w, r, user, http.StatusUnprocessableEntity, func(p *page) {
		p.Form = form
		p.Errors = errs.Map()
	})
}

func submittedForm(r *http.Request) todoForm {
	return todoForm{
		Title:       strings.TrimSpace(r.PostFormValue(validate.FieldTitle)),
		Description: strings.TrimSpace(r.PostFormValue(validate.FieldDescription)),
	}
}

// finish flashes msg and returns to the list the dialog was opened over.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, kind, msg string) {
	ctx := route.Context{View: viewFromPath(r.URL.Path)}
	h.setFlash(w, kind, msg)
	http.Redirect(w, r, listURL(ctx, route.ParseParams(r.URL.Query())), http.StatusSeeOther)
}

// viewFromPath finds the list view a task path hangs off. Toggle paths are
// not dialogs, so route.Parse does not know them.
func viewFromPath(path string) todolist.View {
	for _, v := range todolist.Views {
		if p := route.Prefix(v); p != "" && strings.HasPrefix(path, p+"/") {
			return v
		}
	}
	return todolist.ViewAll
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, user *store.User) {
	lang := h.lang(r)
	form := submittedForm(r)
	if errs := validate.Todo(form.Title, form.Description); errs != nil {
		h.rejectForm(w, r, user, form, errs)
		return
	}
	todo, err := h.store.CreateTodo(user.ID, form.Title, form.Description)
	if err != nil {
		h.log(r).Error("create todo", "err", err)
		h.finish(w, r, flashError, i18n.T(lang, "toast.todo.createError", http.StatusText(http.StatusInternalServerError)))
		return
	}
	h.log(r).Info("todo created", "todo_id", todo.ID)
	h.finish(w, r, flashSuccess, i18n.T(lang, "toast.todo.created"))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, user *store.User) {
	lang := h.lang(r)
	form := submittedForm(r)
	if errs := validate.Todo(form.Title, form.Description); errs != nil {
		h.rejectForm(w, r, user, form, errs)
		return
	}
	_, err := h.store.UpdateTodo(user.ID, mux.Vars(r)["id"], store.TodoPatch{
		Title:       &form.Title,
		Description: &form.Description,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.finish(w, r, flashError, i18n.T(lang, "toast.apiError.404"))
	case err != nil:
		h.log(r).Error("update todo", "err", err)
		h.finish(w, r, flashError, i18n.T(lang, "toast.todo.updateError", http.StatusText(http.StatusInternalServerError)))
	default:
		h.finish(w, r, flashSuccess, i18n.T(lang, "toast.todo.updated"))
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, user *store.User) {
	lang := h.lang(r)
	err := h.store.DeleteTodo(user.ID, mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.finish(w, r, flashError, i18n.T(lang, "toast.apiError.404"))
	case err != nil:
		h.log(r).Error("delete todo", "err", err)
		h.finish(w, r, flashError, i18n.T(lang, "toast.todo.deleteError", http.StatusText(http.StatusInternalServerError)))
	default:
		h.finish(w, r, flashSuccess, i18n.T(lang, "toast.todo.deleted"))
	}
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request, user *store.User) {
	lang := h.lang(r)
	todo, err := h.store.ToggleTodo(user.ID, mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.finish(w, r, flashError, i18n.T(lang, "toast.apiError.404"))
	case err != nil:
		h.log(r).Error("toggle todo", "err", err)
		h.finish(w, r, flashError, i18n.T(lang, "toast.todo.toggleError", http.StatusText(http.StatusInternalServerError)))
	case todo.Completed:
		h.finish(w, r, flashSuccess, i18n.T(lang, "toast.todo.completed"))
	default:
		h.finish(w, r, flashSuccess, i18n.T(lang, "toast.todo.pending"))
	}
}
