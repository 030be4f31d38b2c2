package web

import "github.com/a-h/templ"

func AdminUsers() templ.Component {
	return render(Page{
		Title: "User accounts",
		Roles: []string{"admin"},
		BodyHTML: `    <main class="shell">
      <header class="bar"><h1>User accounts</h1><span id="whoami"></span><a href="/staff">Dashboard</a><button id="logout">Sign out</button></header>
      <section class="panel">
        <h2>Add account</h2>
        <form id="userForm" class="stack">
          <input name="username" placeholder="Username" required/>
          <input name="email" type="email" placeholder="Email" required/>
          <input name="fullName" placeholder="Full name" required/>
          <input name="department" placeholder="Department"/>
          <select name="role"><option>adviser</option><option>counselor</option><option>admin</option></select>
          <input name="password" type="password" minlength="8" placeholder="Temporary password" required/>
          <button type="submit" class="primary">Create account</button>
        </form>
        <div id="userResult" class="result"></div>
      </section>
      <section class="panel">
        <table class="grid">
          <thead><tr><th>Name</th><th>Username</th><th>Email</th><th>Role</th><th>Active</th><th></th></tr></thead>
          <tbody id="userRows"></tbody>
        </table>
      </section>
    </main>`,
		Script: `      async function loadUsers() {
        const data = await GuidanceDesk.api("GET", "/api/users?per_page=100");
        document.getElementById("userRows").replaceChildren(...data.data.map((u) => {
          const tr = GuidanceDesk.row([u.fullName, u.username, u.email, u.role, u.isActive ? "yes" : "no"]);
          const cell = document.createElement("td");
          const toggle = document.createElement("button");
          toggle.textContent = u.isActive ? "Deactivate" : "Activate";
          toggle.addEventListener("click", async () => {
            await GuidanceDesk.api("PUT", "/api/users/" + u.id, { isActive: !u.isActive });
            loadUsers();
          });
          cell.append(toggle);
          tr.append(cell);
          return tr;
        }));
      }
      document.getElementById("userForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const form = event.target;
        try {
          await GuidanceDesk.api("POST", "/api/users", Object.fromEntries(new FormData(form).entries()));
          form.reset();
          document.getElementById("userResult").textContent = "Account created.";
          loadUsers();
        } catch (err) {
          document.getElementById("userResult").textContent = err.message;
        }
      });
      loadUsers();`,
	})
}
