package main

const htmlContent = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FlightTrack</title>
    <style>
        body { margin: 0; font-family: system-ui, sans-serif; background: #101418; color: #e6e6e6; height: 100vh; display: flex; flex-direction: column; overflow: hidden; }
        .tabs { display: flex; background: #1a2027; border-bottom: 1px solid #2c343d; height: 36px; align-items: flex-end; padding-left: 8px; flex-shrink: 0; }
        .tab { padding: 7px 14px; cursor: pointer; font-size: 12px; color: #8a96a3; border-radius: 6px 6px 0 0; margin-right: 2px; user-select: none; }
        .tab.active { background: #101418; color: #fff; }
        .tab.disabled { pointer-events: none; opacity: 0.4; }
        .content { flex: 1; display: flex; min-height: 0; }
        .tab-content { display: none; width: 100%; height: 100%; }
        .tab-content.active { display: block; }
        #terminal-output { background: #07090b; font-family: Consolas, Menlo, monospace; font-size: 12px; padding: 10px; overflow-y: auto; white-space: pre-wrap; height: 100%; box-sizing: border-box; }
        #terminal-output .info { color: #5fbf6a; }
        #terminal-output .warn { color: #f0a030; }
        #terminal-output .err { color: #ef5350; }
        #terminal-output .sys { color: #42a5f5; font-weight: bold; }
        iframe { width: 100%; height: 100%; border: none; background: #fff; }
    </style>
</head>
<body>
    <div class="tabs">
        <div class="tab disabled" id="tab-app" onclick="switchTab('app')">VIEWER</div>
        <div class="tab active" id="tab-term" onclick="switchTab('term')">TERMINAL</div>
    </div>
    <div class="content">
        <div id="content-app" class="tab-content"><iframe id="frame-app"></iframe></div>
        <div id="content-term" class="tab-content active"><div id="terminal-output"></div></div>
    </div>
    <script>
        const output = document.getElementById('terminal-output');

        function switchTab(id) {
            document.querySelectorAll('.tab').forEach(t => t.classList.remove('active'));
            document.querySelectorAll('.tab-content').forEach(c => c.classList.remove('active'));
            document.getElementById('tab-' + id).classList.add('active');
            document.getElementById('content-' + id).classList.add('active');
        }

        function appendLog(text) {
            const line = document.createElement('div');
            if (text.startsWith('>')) line.className = 'sys';
            else if (text.includes('ERROR') || text.includes('FAIL')) line.className = 'err';
            else if (text.includes('WARN')) line.className = 'warn';
            else if (text.includes('INFO')) line.className = 'info';
            line.textContent = text;
            output.appendChild(line);
            output.scrollTop = output.scrollHeight;
        }

        // Exposed to Go
        window.setTerminalTitle = function(name) {
            document.getElementById('tab-term').innerText = name.toUpperCase();
        };
        window.enableApp = function(url) {
            document.getElementById('frame-app').src = url;
            document.getElementById('tab-app').classList.remove('disabled');
            switchTab('app');
        };
        window.addLogLine = appendLog;

        document.addEventListener('keydown', function(event) {
            if (event.key === 'F5' || (event.ctrlKey && event.key === 'r')) {
                event.preventDefault();
            }
        });
    </script>
</body>
</html>
`
