package frontend

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// rawComponent wraps a pre-built HTML string so pages can be served through
// templ.Handler alongside the rest of the stack.
func rawComponent(markup string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}

func pageShell(title, body string) templ.Component {
	return rawComponent(`<!doctype html>
<html lang="en" data-theme="business">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>` + html.EscapeString(title) + `</title>
<link rel="stylesheet" href="/static/styles.css"/>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"></script>
<script src="https://cdn.tailwindcss.com"></script>
<link href="https://cdn.jsdelivr.net/npm/daisyui@4.12.10/dist/full.min.css" rel="stylesheet" type="text/css"/>
</head>
<body class="min-h-screen bg-base-200">
` + body + `
</body>
</html>`)
}

// LoginPage renders the sign-in and registration form. Tokens live in
// datastar signals only; nothing is written to storage on this page.
func LoginPage() templ.Component {
	return pageShell("Crewboard - Sign in", `
<main class="flex min-h-screen items-center justify-center p-4"
      data-signals="{api_base: 'http://localhost:8080', username: '', display_name: '', password: '', auth_error: ''}">
  <div class="card w-full max-w-md bg-base-100 shadow-xl">
    <div class="card-body gap-4">
      <h1 class="card-title text-2xl">Crewboard</h1>
      <p class="text-sm text-base-content/70">Sign in to see your board, or register a new technician account.</p>
      <label class="form-control">
        <span class="label-text mb-1">Username</span>
        <input class="input input-bordered" type="text" data-bind:username autocomplete="username"/>
      </label>
      <label class="form-control">
        <span class="label-text mb-1">Display name (registration only)</span>
        <input class="input input-bordered" type="text" data-bind:display_name autocomplete="name"/>
      </label>
      <label class="form-control">
        <span class="label-text mb-1">Password</span>
        <input class="input input-bordered" type="password" data-bind:password autocomplete="current-password"/>
      </label>
      <div class="text-error text-sm" data-show="$auth_error !== ''" data-text="$auth_error"></div>
      <div class="card-actions justify-between">
        <button class="btn btn-ghost"
                data-on:click="@post($api_base + '/api/v1/auth/register', {payload: {username: $username, display_name: $display_name, password: $password}}).then(r => r.ok ? window.alert('Registered. You can sign in now.') : $auth_error = 'registration failed')">Register</button>
        <button class="btn btn-primary"
                data-on:click="@post($api_base + '/api/v1/auth/login', {payload: {username: $username, password: $password}}).then(async r => { if (!r.ok) { $auth_error = 'invalid credentials'; return; } const body = await r.json(); sessionStorage.setItem('crewboard_token', body.access_token); window.location.href = '/app'; })">Sign in</button>
      </div>
    </div>
  </div>
</main>`)
}

// DashboardPage hosts the live board. The #board and #events containers are
// replaced in place by SSE patches from /events.
func DashboardPage() templ.Component {
	return pageShell("Crewboard - Dashboard", `
<main class="mx-auto max-w-6xl p-4 space-y-4"
      data-signals="{api_base: 'http://localhost:8080', access_token: ''}"
      data-on:load="$access_token = sessionStorage.getItem('crewboard_token') || ''; if ($access_token === '') { window.location.href = '/login'; }">
  <header class="navbar bg-base-100 rounded-box shadow">
    <div class="flex-1 px-2 text-xl font-semibold">Crewboard</div>
    <div class="flex-none gap-2 px-2">
      <a class="btn btn-sm btn-ghost" href="/login"
         data-on:click="sessionStorage.removeItem('crewboard_token'); @get('/events/disconnect', {headers: {Authorization: 'Bearer ' + $access_token}})">Sign out</a>
    </div>
  </header>
  <div class="grid grid-cols-1 lg:grid-cols-3 gap-4"
       data-on:load__delay.100ms="@get('/events?token=' + $access_token, {openWhenHidden: true})">
    <section class="lg:col-span-2 card bg-base-100 shadow">
      <div class="card-body">
        <h2 class="card-title text-lg">Board</h2>
        <div id="board" class="space-y-4">
          <div class="text-sm text-base-content/60">Connecting...</div>
        </div>
      </div>
    </section>
    <aside class="card bg-base-100 shadow">
      <div class="card-body">
        <h2 class="card-title text-lg">Activity</h2>
        <div id="events" class="space-y-3 max-h-[24rem] overflow-auto pr-1"></div>
      </div>
    </aside>
  </div>
</main>`)
}

// EventItem is a single entry in the activity feed.
func EventItem(message, subtitle string) templ.Component {
	return rawComponent(`<div class="rounded-lg border border-base-300/60 bg-base-100 px-3 py-2">` +
		`<div class="text-sm font-medium text-base-content">` + html.EscapeString(message) + `</div>` +
		`<div class="text-xs text-base-content/60">` + html.EscapeString(subtitle) + `</div>` +
		`</div>`)
}
