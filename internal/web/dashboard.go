package web

import "github.com/a-h/templ"

const referralTable = `      <section class="panel">
        <div class="row">
          <h2>Referrals</h2>
          <select id="statusFilter">
            <option value="">All statuses</option>
            <option>Pending</option>
            <option>Under Review</option>
            <option>For Consultation</option>
            <option>Complete</option>
          </select>
          <input id="referralSearch" placeholder="Search name, reason or id"/>
        </div>
        <table class="grid">
          <thead><tr><th>ID</th><th>Student</th><th>Level</th><th>Reason</th><th>Severity</th><th>Status</th><th>Date</th></tr></thead>
          <tbody id="referralRows"></tbody>
        </table>
        <div class="row"><button id="prevPage">Prev</button><span id="pageLabel"></span><button id="nextPage">Next</button></div>
      </section>`

const referralScript = `      let page = 1;
      async function loadReferrals() {
        const params = new URLSearchParams({ page: String(page), per_page: "15" });
        const status = document.getElementById("statusFilter").value;
        const q = document.getElementById("referralSearch").value.trim();
        if (status) params.set("status", status);
        if (q) params.set("q", q);
        const data = await GuidanceDesk.api("GET", "/api/referrals?" + params.toString());
        const rows = document.getElementById("referralRows");
        rows.replaceChildren(...data.data.map((r) => GuidanceDesk.row([
          r.referralId, r.studentName, r.level, r.reason, r.severity, r.status, r.referralDate.slice(0, 10)
        ])));
        const p = data.pagination;
        document.getElementById("pageLabel").textContent = "Page " + p.page + " of " + p.totalPages;
        document.getElementById("prevPage").disabled = !p.hasPrev;
        document.getElementById("nextPage").disabled = !p.hasNext;
      }
      document.getElementById("statusFilter").addEventListener("change", () => { page = 1; loadReferrals(); });
      document.getElementById("referralSearch").addEventListener("change", () => { page = 1; loadReferrals(); });
      document.getElementById("prevPage").addEventListener("click", () => { page--; loadReferrals(); });
      document.getElementById("nextPage").addEventListener("click", () => { page++; loadReferrals(); });
      async function loadStats() {
        const data = await GuidanceDesk.api("GET", "/api/referrals/stats");
        const s = data.data;
        document.getElementById("statTotal").textContent = s.total;
        document.getElementById("statPending").textContent = s.byStatus["Pending"];
        document.getElementById("statHigh").textContent = s.bySeverity["High"];
        document.getElementById("statComplete").textContent = s.byStatus["Complete"];
      }
      GuidanceDesk.onDashboardEvent(() => { loadReferrals(); loadStats(); });
      loadReferrals();
      loadStats();`

const statsCards = `      <section class="cards">
        <div class="card"><span>Total this year</span><strong id="statTotal">-</strong></div>
        <div class="card"><span>Pending</span><strong id="statPending">-</strong></div>
        <div class="card"><span>High severity</span><strong id="statHigh">-</strong></div>
        <div class="card"><span>Complete</span><strong id="statComplete">-</strong></div>
      </section>`

// StaffDashboard is the counselor view: referrals, student submissions and the
// weekly prescription.
func StaffDashboard() templ.Component {
	return render(Page{
		Title: "Counselor dashboard",
		Roles: []string{"admin", "counselor"},
		BodyHTML: `    <main class="shell">
      <header class="bar"><h1>Counselor dashboard</h1><span id="whoami"></span><button id="logout">Sign out</button></header>
` + statsCards + `
      <section class="panel">
        <h2>Student submissions</h2>
        <table class="grid">
          <thead><tr><th>ID</th><th>Name</th><th>Concern</th><th>Status</th><th></th></tr></thead>
          <tbody id="submissionRows"></tbody>
        </table>
      </section>
` + referralTable + `
      <section class="panel" id="prescriptionPanel">
        <h2>Weekly AI prescription</h2>
        <p id="prescriptionStatus">Checking availability...</p>
        <form id="prescribeForm" class="stack" hidden>
          <input name="issue" maxlength="500" placeholder="Trending issue this week" required/>
          <input name="level" placeholder="Level (optional)"/>
          <button type="submit" class="primary">Generate prescription</button>
        </form>
        <div id="prescriptionResult" class="result"></div>
        <h3>History</h3>
        <ol id="prescriptionHistory"></ol>
      </section>
    </main>`,
		Script: referralScript + `
      async function loadSubmissions() {
        const data = await GuidanceDesk.api("GET", "/api/student-submissions?status=Pending");
        const rows = document.getElementById("submissionRows");
        rows.replaceChildren(...data.data.map((s) => {
          const tr = GuidanceDesk.row([s.submissionId, s.studentName, s.concern, s.status]);
          const cell = document.createElement("td");
          const btn = document.createElement("button");
          btn.textContent = "Escalate";
          btn.addEventListener("click", async () => {
            await GuidanceDesk.api("POST", "/api/student-submissions/" + s.id + "/escalate", {});
            loadSubmissions();
            loadReferrals();
          });
          cell.append(btn);
          tr.append(cell);
          return tr;
        }));
      }
      async function loadAvailability() {
        const data = await GuidanceDesk.api("GET", "/api/ai-prescriptions/check-availability");
        const status = document.getElementById("prescriptionStatus");
        const form = document.getElementById("prescribeForm");
        if (data.allowed) {
          status.textContent = "This week's prescription is available (" + data.currentWeek.key + ").";
          form.hidden = false;
        } else {
          const t = data.timeUntilNext;
          status.textContent = "Already used this week. Next available in " + t.days + "d " + t.hours + "h " + t.minutes + "m.";
          form.hidden = true;
        }
      }
      async function loadHistory() {
        const data = await GuidanceDesk.api("GET", "/api/ai-prescriptions/history");
        const list = document.getElementById("prescriptionHistory");
        list.replaceChildren(...data.prescriptions.map((p) => {
          const li = document.createElement("li");
          li.textContent = p.weekInfo.key + ": " + p.issue + " (" + p.solution.severity + ") " + p.solution.root_cause;
          return li;
        }));
      }
      document.getElementById("prescribeForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const form = event.target;
        const result = document.getElementById("prescriptionResult");
        const context = {};
        if (form.elements.level.value.trim()) context.level = form.elements.level.value.trim();
        result.textContent = "Generating...";
        try {
          const data = await GuidanceDesk.api("POST", "/api/ai-prescriptions/prescribe", { issue: form.elements.issue.value.trim(), context });
          result.replaceChildren(GuidanceDesk.solution(data.solution));
        } catch (err) {
          result.textContent = err.message;
        }
        loadAvailability();
        loadHistory();
      });
      GuidanceDesk.onDashboardEvent(() => { loadSubmissions(); loadAvailability(); });
      loadSubmissions();
      loadAvailability();
      loadHistory();`,
	})
}

// AdviserDashboard lists the adviser's own referrals and a referral form.
func AdviserDashboard() templ.Component {
	return render(Page{
		Title: "Adviser dashboard",
		Roles: []string{"adviser"},
		BodyHTML: `    <main class="shell">
      <header class="bar"><h1>Adviser dashboard</h1><span id="whoami"></span><button id="logout">Sign out</button></header>
` + statsCards + `
      <section class="panel">
        <h2>New referral</h2>
        <form id="referralForm" class="stack">
          <input name="studentId" placeholder="Student ID (optional)"/>
          <input name="studentName" placeholder="Student name"/>
          <select name="level"><option value="">Level</option><option>Elementary</option><option>JHS</option><option>SHS</option></select>
          <input name="grade" placeholder="Grade"/>
          <input name="reason" maxlength="280" placeholder="Reason" required/>
          <textarea name="description" rows="4" placeholder="Details"></textarea>
          <select name="severity"><option>Low</option><option selected>Medium</option><option>High</option></select>
          <button type="submit" class="primary">Submit referral</button>
        </form>
        <div id="referralResult" class="result"></div>
      </section>
` + referralTable + `
    </main>`,
		Script: referralScript + `
      document.getElementById("referralForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const form = event.target;
        const body = Object.fromEntries(new FormData(form).entries());
        try {
          const data = await GuidanceDesk.api("POST", "/api/referrals", body);
          document.getElementById("referralResult").textContent = "Referral " + data.data.referralId + " submitted.";
          form.reset();
        } catch (err) {
          document.getElementById("referralResult").textContent = err.message;
        }
      });`,
	})
}
