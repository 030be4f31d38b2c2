package web

import "github.com/a-h/templ"

// StudentForm is the public page where students submit a concern.
func StudentForm() templ.Component {
	return render(Page{
		Title: "Talk to a counselor",
		BodyHTML: `    <main class="shell narrow">
      <header class="hero">
        <span class="tag">Guidance Office</span>
        <h1>Something on your mind?</h1>
        <p>Tell us what is going on. A counselor reads every message.</p>
      </header>

      <section class="panel">
        <form id="concernForm" class="stack">
          <fieldset class="options">
            <legend>How should we know you?</legend>
            <label><input type="radio" name="nameOption" value="realName"/> Use my name</label>
            <label><input type="radio" name="nameOption" value="anonymous"/> Stay anonymous</label>
            <label><input type="radio" name="nameOption" value="preferNot" checked/> Prefer not to say</label>
          </fieldset>
          <input name="studentName" placeholder="Your name" autocomplete="name" maxlength="128" hidden/>
          <textarea name="concern" rows="6" maxlength="2000" placeholder="Describe your concern" required></textarea>
          <button type="submit" class="primary">Send to the guidance office</button>
        </form>
        <div id="concernResult" class="result" role="status"></div>
      </section>
    </main>`,
		Script: `      const form = document.getElementById("concernForm");
      const result = document.getElementById("concernResult");
      const nameInput = form.elements.studentName;
      form.addEventListener("change", () => {
        nameInput.hidden = form.elements.nameOption.value !== "realName";
      });
      form.addEventListener("submit", async (event) => {
        event.preventDefault();
        result.textContent = "Sending...";
        const res = await fetch("/api/public-referrals", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({
            studentName: nameInput.value.trim(),
            concern: form.elements.concern.value.trim(),
            nameOption: form.elements.nameOption.value
          })
        });
        const data = await res.json();
        if (!res.ok) {
          result.textContent = data.error || "Could not send your concern.";
          return;
        }
        form.reset();
        nameInput.hidden = true;
        result.textContent = data.message + " Reference: " + data.submissionId;
      });`,
	})
}
