package service

// HTML templates for the Prisma Talent transactional emails. Every body
// is wrapped in baseTemplate, which carries the shared branding.

const baseTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Prisma Talent</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Inter', -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
            line-height: 1.6;
            color: #1a1a1a;
            background-color: #f5f5f5;
        }
        .container { max-width: 600px; margin: 0 auto; background-color: #FFFFFF; }
        .header { background-color: #1a1a1a; padding: 24px; text-align: center; }
        .logo { font-size: 24px; font-weight: 700; color: #FFFFFF; letter-spacing: -0.5px; }
        .content { padding: 40px 32px; }
        h1 { font-size: 24px; font-weight: 600; margin-bottom: 16px; color: #1a1a1a; }
        h2 { font-size: 20px; font-weight: 600; margin: 24px 0 12px; color: #333333; }
        p { font-size: 16px; margin-bottom: 16px; color: #333333; }
        .cta-button {
            display: inline-block;
            background: linear-gradient(135deg, #8B5CF6, #EC4899);
            color: #FFFFFF;
            padding: 14px 32px;
            text-decoration: none;
            border-radius: 8px;
            font-weight: 600;
            margin: 24px 0;
        }
        .info-box {
            background-color: #f5f5f5;
            border-left: 4px solid #8B5CF6;
            padding: 16px;
            margin: 24px 0;
            border-radius: 4px;
        }
        .info-row { margin-bottom: 8px; }
        .info-label { font-weight: 600; color: #666666; display: inline-block; min-width: 120px; }
        ul { margin: 16px 0; padding-left: 24px; }
        li { margin-bottom: 8px; color: #333333; }
        .footer {
            background-color: #f5f5f5;
            padding: 24px 32px;
            text-align: center;
            font-size: 14px;
            color: #666666;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <span class="logo">Prisma Talent</span>
        </div>
        {{.Content}}
        <div class="footer">
            <p>© {{.Year}} Prisma. Todos los derechos reservados.</p>
        </div>
    </div>
</body>
</html>
`

const leaderFormRequestTemplate = `<div class="content">
    <h1>Hola {{.leader_name}},</h1>

    <p>El equipo de HR ha iniciado el proceso de apertura para la siguiente posición en <strong>{{.company_name}}</strong>:</p>

    <div class="info-box">
        <div class="info-row">
            <span class="info-label">Posición:</span>
            <span><strong>{{.position_name}}</strong></span>
        </div>
        <div class="info-row">
            <span class="info-label">Código:</span>
            <span>{{.position_code}}</span>
        </div>
    </div>

    <p><strong>Tu input es necesario para continuar.</strong></p>

    <p>Por favor completa las especificaciones técnicas y contexto del equipo para que Prisma Talent pueda generar un job description preciso y atraer a los candidatos ideales.</p>

    <a href="{{.form_url}}" class="cta-button">Completar Especificaciones →</a>

    <h2>¿Qué información necesitamos?</h2>
    <ul>
        <li>Contexto del equipo y modalidad de trabajo</li>
        <li>Nivel de autonomía y estilo de liderazgo</li>
        <li>KPIs de éxito y métricas clave</li>
        <li>Especificaciones técnicas del área</li>
    </ul>

    <p>Si tienes alguna pregunta, no dudes en responder este email.</p>

    <p>Saludos,<br><strong>Equipo Prisma Talent</strong></p>
</div>
`

const jobDescriptionValidationTemplate = `<div class="content">
    <h1>Hola {{.hr_name}},</h1>

    <p>{{.leader_name}} ha completado las especificaciones técnicas para la posición:</p>

    <div class="info-box">
        <div class="info-row">
            <span class="info-label">Posición:</span>
            <span><strong>{{.position_name}}</strong></span>
        </div>
        <div class="info-row">
            <span class="info-label">Código:</span>
            <span>{{.position_code}}</span>
        </div>
        <div class="info-row">
            <span class="info-label">Empresa:</span>
            <span>{{.company_name}}</span>
        </div>
        <div class="info-row">
            <span class="info-label">Completado por:</span>
            <span>{{.leader_name}}</span>
        </div>
    </div>

    <p><strong>El administrador de Prisma ahora generará el Job Description.</strong></p>

    <p>Recibirás una notificación cuando el JD esté listo para tu validación.</p>

    <a href="{{.admin_url}}" class="cta-button">Ver Detalles en Admin →</a>

    <h2>Próximos pasos</h2>
    <ul>
        <li>✅ Especificaciones completadas</li>
        <li>⏳ Generación de Job Description (Prisma)</li>
        <li>⏳ Validación de JD (HR - tú)</li>
        <li>⏳ Publicación de la posición</li>
    </ul>

    <p>Saludos,<br><strong>Equipo Prisma Talent</strong></p>
</div>
`

const applicantStatusUpdateTemplate = `<div class="content">
    <h1>¡Aplicación recibida!</h1>

    <p>Hola {{.applicant_name}},</p>

    <p>Hemos recibido tu aplicación para la posición de <strong>{{.position_name}}</strong> en <strong>{{.company_name}}</strong>.</p>

    <div class="info-box">
        <div class="info-row">
            <span class="info-label">Posición:</span>
            <span>{{.position_name}}</span>
        </div>
        <div class="info-row">
            <span class="info-label">Empresa:</span>
            <span>{{.company_name}}</span>
        </div>
        <div class="info-row">
            <span class="info-label">Código:</span>
            <span>{{.position_code}}</span>
        </div>
    </div>

    <h2>¿Qué sigue?</h2>
    <p>Nuestro equipo revisará tu perfil junto con el equipo de <strong>{{.company_name}}</strong>. Te contactaremos si tu experiencia es un match para la posición.</p>

    <ul>
        <li><strong>Revisión inicial:</strong> 3-5 días hábiles</li>
        <li><strong>Screening call:</strong> Si pasas la revisión, agendaremos una llamada de 20 minutos</li>
        <li><strong>Entrevista técnica:</strong> Con el equipo de {{.company_name}}</li>
    </ul>

    <p>¡Gracias por tu interés en unirte a <strong>{{.company_name}}</strong> a través de Prisma Talent!</p>

    <p>Saludos,<br><strong>Equipo Prisma Talent</strong></p>
</div>
`

const clientInvitationTemplate = `<div class="content">
    <h1>Bienvenido a Prisma Talent, {{.client_name}}</h1>

    <p>Tu cuenta ha sido creada exitosamente en <strong>Prisma Talent</strong> para <strong>{{.company_name}}</strong>.</p>

    <p>Haz clic en el botón de abajo para acceder a tu portal y comenzar a crear posiciones:</p>

    <a href="{{.magic_link}}" class="cta-button">Acceder a Portal de Cliente →</a>

    <h2>¿Qué puedes hacer en tu portal?</h2>
    <ul>
        <li>Crear nuevas posiciones con nuestro asistente inteligente</li>
        <li>Revisar y validar job descriptions generados por IA</li>
        <li>Ver y gestionar candidatos en tiempo real</li>
        <li>Dar feedback directo al equipo de Prisma</li>
    </ul>

    <p><strong>Nota:</strong> Este enlace de acceso expira en 24 horas. Si necesitas un nuevo enlace, contacta a tu administrador.</p>

    <p>Saludos,<br><strong>Equipo Prisma Talent</strong></p>
</div>
`

const testEmailTemplate = `<div class="content">
    <h1>🧪 Email de Prueba</h1>

    <p>Hola {{.recipient_name}},</p>

    <p>Este es un email de prueba del sistema de notificaciones de <strong>Prisma Talent</strong>.</p>

    <div class="info-box">
        <div class="info-row">
            <span class="info-label">Estado:</span>
            <span>✅ Sistema de emails funcionando correctamente</span>
        </div>
        <div class="info-row">
            <span class="info-label">Timestamp:</span>
            <span>{{.timestamp}}</span>
        </div>
    </div>

    <p>Si recibiste este email, significa que:</p>
    <ul>
        <li>✅ La integración con Resend está funcionando</li>
        <li>✅ Los templates se están renderizando correctamente</li>
        <li>✅ El email worker está operativo</li>
    </ul>

    <p>Saludos,<br><strong>Equipo Prisma Talent</strong></p>
</div>
`
