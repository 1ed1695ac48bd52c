package browser

// Every script takes the selector set as its single argument and returns
// {found: false} when the message pane is not in the document.

const selectorHelpers = `
	const first = (root, list) => {
		for (const s of list || []) {
			const el = root.querySelector(s);
			if (el) return el;
		}
		return null;
	};
	const all = (root, list) => {
		for (const s of list || []) {
			const els = root.querySelectorAll(s);
			if (els.length > 0) return Array.from(els);
		}
		return [];
	};
`

const readVisibleJS = `(sel) => {` + selectorHelpers + `
	if (!first(document, sel.pane)) return { found: false, items: [] };
	const items = all(document, sel.message_block).map((block) => {
		const sender = first(block, sel.sender);
		const time = first(block, sel.timestamp);
		const content = first(block, sel.content);
		return {
			sender: sender && sender.innerText ? sender.innerText : "",
			ts: time ? (time.getAttribute("data-ts") || "") : "",
			text: content ? (content.innerText || "") : "",
		};
	});
	return { found: true, items };
}`

const markerJS = `(sel) => {` + selectorHelpers + `
	if (!first(document, sel.pane)) return { found: false, marker: "" };
	const block = all(document, sel.message_block)[0];
	if (!block) return { found: true, marker: "" };
	const time = first(block, sel.timestamp);
	return { found: true, marker: time ? (time.getAttribute("data-ts") || "") : "" };
}`

// stimulateJS mixes a large wheel event, a burst of PageDown key presses and
// a direct scrollTop jump of two viewport heights.
const stimulateJS = `(sel) => {` + selectorHelpers + `
	const pane = first(document, sel.pane);
	if (!pane) return { found: false };

	pane.dispatchEvent(new WheelEvent("wheel", {
		deltaY: 5000,
		deltaMode: WheelEvent.DOM_DELTA_PIXEL,
		bubbles: true,
		cancelable: true,
		view: window,
	}));

	setTimeout(() => {
		const key = { key: "PageDown", code: "PageDown", keyCode: 34, which: 34, bubbles: true, cancelable: true, view: window };
		for (let i = 0; i < 3; i++) {
			setTimeout(() => pane.dispatchEvent(new KeyboardEvent("keydown", key)), i * 50);
		}
	}, 250);

	setTimeout(() => {
		pane.scrollTop += pane.clientHeight * 2;
		pane.dispatchEvent(new Event("scroll", { bubbles: true }));
	}, 500);

	return { found: true };
}`

const credentialsJS = `() => {
	const m = window.location.pathname.match(/\/client\/[^/]+\/([^/]+)/);
	const boot = window.TS && window.TS.boot_data;
	return {
		channel: m ? m[1] : "",
		token: boot && boot.api_token ? boot.api_token : "",
		url: window.location.href,
	};
}`
