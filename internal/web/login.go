package web

import "github.com/a-h/templ"

func Login() templ.Component {
	return render(Page{
		Title: "Staff sign in",
		BodyHTML: `    <main class="shell narrow">
      <header class="hero">
        <span class="tag">Guidance Desk</span>
        <h1>Staff sign in</h1>
      </header>
      <section class="panel">
        <form id="loginForm" class="stack">
          <input name="login" placeholder="Email or username" autocomplete="username" required/>
          <input name="password" type="password" placeholder="Password" autocomplete="current-password" required/>
          <button type="submit" class="primary">Sign in</button>
        </form>
        <div id="loginResult" class="result" role="status"></div>
      </section>
    </main>`,
		Script: `      const form = document.getElementById("loginForm");
      const result = document.getElementById("loginResult");
      form.addEventListener("submit", async (event) => {
        event.preventDefault();
        const login = form.elements.login.value.trim();
        const body = { password: form.elements.password.value };
        if (login.includes("@")) { body.email = login; } else { body.username = login; }
        const res = await fetch("/api/auth/login", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body)
        });
        const data = await res.json();
        if (!res.ok) {
          result.textContent = data.error || "Sign in failed.";
          return;
        }
        GuidanceDesk.saveSession(data.token, data.user);
        window.location.href = GuidanceDesk.homeFor(data.user.role);
      });`,
	})
}
