package auth

// pageCSS is shared by both pages.
const pageCSS = `
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: #f0f2f5;
            color: #1c1e21;
            display: flex;
            align-items: center;
            justify-content: center;
            min-height: 100vh;
            margin: 0;
        }

        .card {
            background: #fff;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1), 0 8px 16px rgba(0, 0, 0, 0.1);
            padding: 2rem 2.5rem;
            max-width: 420px;
            text-align: center;
        }

        h1 {
            font-size: 1.375rem;
            margin: 0 0 0.75rem;
        }

        p {
            color: #606770;
            line-height: 1.4;
        }

        .ok { color: #42b72a; }
        .fail { color: #d93025; }

        code {
            background: #f5f6f7;
            border-radius: 4px;
            padding: 0.125rem 0.375rem;
        }
`

const successTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>graph-cli login</title>
    <style>` + pageCSS + `</style>
</head>
<body>
    <div class="card">
        <h1 class="ok">Login received</h1>
        <p>graph-cli is exchanging the code for an access token. You can close this tab and return to your terminal.</p>
    </div>
</body>
</html>
`

const failureTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>graph-cli login failed</title>
    <style>` + pageCSS + `</style>
</head>
<body>
    <div class="card">
        <h1 class="fail">Login failed</h1>
        <p><code>{{.Error}}</code></p>
        {{if .Description}}<p>{{.Description}}</p>{{end}}
        <p>Return to your terminal for details.</p>
    </div>
</body>
</html>
`
